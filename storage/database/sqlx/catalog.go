package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core/catalog"
)

var lookupTables = map[catalog.Kind]string{
	catalog.KindEducationLevel: "education_levels",
	catalog.KindModule:         "modules",
	catalog.KindLanguage:       "languages",
	catalog.KindDifficulty:     "difficulties",
	catalog.KindResourceType:   "resource_types",
}

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

type (
	departmentRow struct {
		ID        int    `db:"id"`
		Name      string `db:"name"`
		ShortName string `db:"short_name"`
	}

	provinceRow struct {
		ID           int    `db:"id"`
		Name         string `db:"name"`
		DepartmentID int    `db:"department_id"`
	}

	institutionRow struct {
		ID         int    `db:"id"`
		AdminID    int    `db:"admin_id"`
		Name       string `db:"name"`
		Code       string `db:"code"`
		Address    string `db:"address"`
		Email      string `db:"email"`
		ProvinceID int    `db:"province_id"`
		LevelID    int    `db:"level_id"`
	}
)

const institutionColumns = `id, COALESCE(admin_id, 0) AS admin_id, name, code, address, email, province_id, level_id`

func lookupTable(kind catalog.Kind) (string, error) {
	table, ok := lookupTables[kind]
	if !ok {
		return "", catalog.ErrUnknownKind
	}
	return table, nil
}

func (repo catalogRepository) ListLookups(ctx context.Context, kind catalog.Kind) ([]catalog.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}
	lookups := make([]catalog.Lookup, 0)
	if err = repo.db.exec(ctx).SelectContext(ctx, &lookups, `SELECT id, name FROM `+table+` ORDER BY id`); err != nil {
		return nil, errors.Wrapf(err, "listing %s", kind)
	}
	return lookups, nil
}

func (repo catalogRepository) GetLookup(ctx context.Context, kind catalog.Kind, id int) (catalog.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return catalog.Lookup{}, err
	}
	var lkp catalog.Lookup
	if err = repo.db.exec(ctx).GetContext(ctx, &lkp, `SELECT id, name FROM `+table+` WHERE id = $1`, id); err != nil {
		return catalog.Lookup{}, notFound(err, catalog.ErrLookupNotFound)
	}
	return lkp, nil
}

func (repo catalogRepository) CreateLookup(ctx context.Context, kind catalog.Kind, name string) (catalog.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return catalog.Lookup{}, err
	}
	lkp := catalog.Lookup{Name: name}
	if err = repo.db.exec(ctx).GetContext(ctx, &lkp.ID, `INSERT INTO `+table+` (name) VALUES ($1) RETURNING id`, name); err != nil {
		return catalog.Lookup{}, errors.Wrapf(err, "creating %s", kind)
	}
	return lkp, nil
}

func (repo catalogRepository) ListDepartments(ctx context.Context) ([]catalog.Department, error) {
	var rows []departmentRow
	if err := repo.db.exec(ctx).SelectContext(ctx, &rows, `SELECT * FROM departments ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "listing departments")
	}
	depts := make([]catalog.Department, 0, len(rows))
	for _, r := range rows {
		depts = append(depts, catalog.Department(r))
	}
	return depts, nil
}

func (repo catalogRepository) GetDepartment(ctx context.Context, id int) (catalog.Department, error) {
	var row departmentRow
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM departments WHERE id = $1`, id); err != nil {
		return catalog.Department{}, notFound(err, catalog.ErrDepartmentNotFound)
	}
	return catalog.Department(row), nil
}

func (repo catalogRepository) CreateDepartment(ctx context.Context, dept catalog.Department) (catalog.Department, error) {
	err := repo.db.exec(ctx).GetContext(ctx, &dept.ID,
		`INSERT INTO departments (name, short_name) VALUES ($1, $2) RETURNING id`, dept.Name, dept.ShortName)
	if err != nil {
		return catalog.Department{}, errors.Wrap(err, "creating department")
	}
	return dept, nil
}

func (repo catalogRepository) ListProvinces(ctx context.Context, departmentID int) ([]catalog.Province, error) {
	var rows []provinceRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM provinces WHERE $1 = 0 OR department_id = $1 ORDER BY id`, departmentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing provinces")
	}
	provs := make([]catalog.Province, 0, len(rows))
	for _, r := range rows {
		provs = append(provs, catalog.Province(r))
	}
	return provs, nil
}

func (repo catalogRepository) GetProvince(ctx context.Context, id int) (catalog.Province, error) {
	var row provinceRow
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM provinces WHERE id = $1`, id); err != nil {
		return catalog.Province{}, notFound(err, catalog.ErrProvinceNotFound)
	}
	return catalog.Province(row), nil
}

func (repo catalogRepository) CreateProvince(ctx context.Context, prov catalog.Province) (catalog.Province, error) {
	err := repo.db.exec(ctx).GetContext(ctx, &prov.ID,
		`INSERT INTO provinces (name, department_id) VALUES ($1, $2) RETURNING id`, prov.Name, prov.DepartmentID)
	if _, ok := pqError(err, foreignKeyViolation); ok {
		return catalog.Province{}, catalog.ErrDepartmentNotFound
	}
	if err != nil {
		return catalog.Province{}, errors.Wrap(err, "creating province")
	}
	return prov, nil
}

func (repo catalogRepository) ListInstitutions(ctx context.Context) ([]catalog.Institution, error) {
	var rows []institutionRow
	if err := repo.db.exec(ctx).SelectContext(ctx, &rows, `SELECT `+institutionColumns+` FROM institutions ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "listing institutions")
	}
	insts := make([]catalog.Institution, 0, len(rows))
	for _, r := range rows {
		insts = append(insts, catalog.Institution(r))
	}
	return insts, nil
}

func (repo catalogRepository) GetInstitution(ctx context.Context, id int) (catalog.Institution, error) {
	var row institutionRow
	err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT `+institutionColumns+` FROM institutions WHERE id = $1`, id)
	if err != nil {
		return catalog.Institution{}, notFound(err, catalog.ErrInstitutionNotFound)
	}
	return catalog.Institution(row), nil
}

func (repo catalogRepository) CreateInstitution(ctx context.Context, inst catalog.Institution) (catalog.Institution, error) {
	row := institutionRow(inst)
	q, args, err := repo.db.BindNamed(`INSERT INTO institutions (admin_id, name, code, address, email, province_id, level_id)
		VALUES (NULLIF(:admin_id, 0), :name, :code, :address, :email, :province_id, :level_id)
		ON CONFLICT (code) DO NOTHING
		RETURNING id`, row)
	if err != nil {
		return catalog.Institution{}, errors.Wrap(err, "binding institution")
	}
	if err = repo.db.exec(ctx).GetContext(ctx, &inst.ID, q, args...); err != nil {
		return catalog.Institution{}, notFound(err, catalog.ErrCodeExists)
	}
	return inst, nil
}

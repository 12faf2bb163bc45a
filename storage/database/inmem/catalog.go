package inmemdb

import (
	"context"

	"github.com/jhoelito123/PyStart/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) ListLookups(_ context.Context, kind catalog.Kind) (lookups []catalog.Lookup, err error) {
	repo.db.read(func(t *tables) {
		table, ok := t.lookups[kind]
		if !ok {
			err = catalog.ErrUnknownKind
			return
		}
		lookups = byID(table, nil)
	})
	return lookups, err
}

func (repo *catalogRepository) GetLookup(_ context.Context, kind catalog.Kind, id int) (lkp catalog.Lookup, err error) {
	repo.db.read(func(t *tables) {
		table, ok := t.lookups[kind]
		if !ok {
			err = catalog.ErrUnknownKind
			return
		}
		if lkp, ok = table[id]; !ok {
			err = catalog.ErrLookupNotFound
		}
	})
	return lkp, err
}

func (repo *catalogRepository) CreateLookup(ctx context.Context, kind catalog.Kind, name string) (catalog.Lookup, error) {
	var lkp catalog.Lookup
	err := repo.db.write(ctx, func(t *tables) error {
		table, ok := t.lookups[kind]
		if !ok {
			return catalog.ErrUnknownKind
		}
		lkp = catalog.Lookup{ID: t.nextID(string(kind)), Name: name}
		table[lkp.ID] = lkp
		return nil
	})
	return lkp, err
}

func (repo *catalogRepository) ListDepartments(context.Context) (depts []catalog.Department, err error) {
	repo.db.read(func(t *tables) {
		depts = byID(t.departments, nil)
	})
	return depts, nil
}

func (repo *catalogRepository) GetDepartment(_ context.Context, id int) (dept catalog.Department, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if dept, ok = t.departments[id]; !ok {
			err = catalog.ErrDepartmentNotFound
		}
	})
	return dept, err
}

func (repo *catalogRepository) CreateDepartment(ctx context.Context, dept catalog.Department) (catalog.Department, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		dept.ID = t.nextID("departments")
		t.departments[dept.ID] = dept
		return nil
	})
	return dept, err
}

func (repo *catalogRepository) ListProvinces(_ context.Context, departmentID int) (provs []catalog.Province, err error) {
	repo.db.read(func(t *tables) {
		provs = byID(t.provinces, func(p catalog.Province) bool {
			return departmentID == 0 || p.DepartmentID == departmentID
		})
	})
	return provs, nil
}

func (repo *catalogRepository) GetProvince(_ context.Context, id int) (prov catalog.Province, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if prov, ok = t.provinces[id]; !ok {
			err = catalog.ErrProvinceNotFound
		}
	})
	return prov, err
}

func (repo *catalogRepository) CreateProvince(ctx context.Context, prov catalog.Province) (catalog.Province, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.departments[prov.DepartmentID]; !ok {
			return catalog.ErrDepartmentNotFound
		}
		prov.ID = t.nextID("provinces")
		t.provinces[prov.ID] = prov
		return nil
	})
	return prov, err
}

func (repo *catalogRepository) ListInstitutions(context.Context) (insts []catalog.Institution, err error) {
	repo.db.read(func(t *tables) {
		insts = byID(t.institutions, nil)
	})
	return insts, nil
}

func (repo *catalogRepository) GetInstitution(_ context.Context, id int) (inst catalog.Institution, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if inst, ok = t.institutions[id]; !ok {
			err = catalog.ErrInstitutionNotFound
		}
	})
	return inst, err
}

func (repo *catalogRepository) CreateInstitution(ctx context.Context, inst catalog.Institution) (catalog.Institution, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		for _, other := range t.institutions {
			if other.Code == inst.Code {
				return catalog.ErrCodeExists
			}
		}
		inst.ID = t.nextID("institutions")
		t.institutions[inst.ID] = inst
		return nil
	})
	return inst, err
}

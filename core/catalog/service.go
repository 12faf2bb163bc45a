package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
)

var (
	// errors
	ErrLookupNotFound      = core.NewNotFoundError("lookup")
	ErrDepartmentNotFound  = core.NewNotFoundError("department")
	ErrProvinceNotFound    = core.NewNotFoundError("province")
	ErrInstitutionNotFound = core.NewNotFoundError("institution")
	ErrUnknownKind         = errors.New("unknown lookup kind")
	ErrCodeExists          = errors.New("an institution with this code already exists")
)

type (
	Repository interface {
		ListLookups(ctx context.Context, kind Kind) ([]Lookup, error)
		GetLookup(ctx context.Context, kind Kind, id int) (Lookup, error)
		CreateLookup(ctx context.Context, kind Kind, name string) (Lookup, error)

		ListDepartments(ctx context.Context) ([]Department, error)
		GetDepartment(ctx context.Context, id int) (Department, error)
		CreateDepartment(ctx context.Context, dept Department) (Department, error)

		// ListProvinces lists the provinces of a department, or all of them when departmentID is 0.
		ListProvinces(ctx context.Context, departmentID int) ([]Province, error)
		GetProvince(ctx context.Context, id int) (Province, error)
		CreateProvince(ctx context.Context, prov Province) (Province, error)

		ListInstitutions(ctx context.Context) ([]Institution, error)
		GetInstitution(ctx context.Context, id int) (Institution, error)
		CreateInstitution(ctx context.Context, inst Institution) (Institution, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) ListLookups(ctx context.Context, kind Kind) ([]Lookup, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	return svc.repo.ListLookups(ctx, kind)
}

func (svc *Service) GetLookup(ctx context.Context, kind Kind, id int) (Lookup, error) {
	if !kind.Valid() {
		return Lookup{}, ErrUnknownKind
	}
	return svc.repo.GetLookup(ctx, kind, id)
}

func (svc *Service) CreateLookup(ctx context.Context, kind Kind, nl NewLookup) (Lookup, error) {
	if !kind.Valid() {
		return Lookup{}, ErrUnknownKind
	}
	return svc.repo.CreateLookup(ctx, kind, nl.Name)
}

func (svc *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return svc.repo.ListDepartments(ctx)
}

func (svc *Service) GetDepartment(ctx context.Context, id int) (Department, error) {
	return svc.repo.GetDepartment(ctx, id)
}

func (svc *Service) CreateDepartment(ctx context.Context, nd NewDepartment) (Department, error) {
	return svc.repo.CreateDepartment(ctx, Department{Name: nd.Name, ShortName: nd.ShortName})
}

func (svc *Service) ListProvinces(ctx context.Context, departmentID int) ([]Province, error) {
	if departmentID != 0 {
		if _, err := svc.repo.GetDepartment(ctx, departmentID); err != nil {
			return nil, err
		}
	}
	return svc.repo.ListProvinces(ctx, departmentID)
}

func (svc *Service) GetProvince(ctx context.Context, id int) (Province, error) {
	return svc.repo.GetProvince(ctx, id)
}

func (svc *Service) CreateProvince(ctx context.Context, np NewProvince) (Province, error) {
	if _, err := svc.repo.GetDepartment(ctx, np.DepartmentID); err != nil {
		if errors.Cause(err) == ErrDepartmentNotFound {
			return Province{}, core.NewValidationError(err, core.FieldError{Field: "department_id", Error: err.Error()})
		}
		return Province{}, err
	}
	return svc.repo.CreateProvince(ctx, Province{Name: np.Name, DepartmentID: np.DepartmentID})
}

func (svc *Service) ListInstitutions(ctx context.Context) ([]Institution, error) {
	return svc.repo.ListInstitutions(ctx)
}

func (svc *Service) CreateInstitution(ctx context.Context, adminID int, ni NewInstitution) (Institution, error) {
	if _, err := svc.repo.GetProvince(ctx, ni.ProvinceID); err != nil {
		if errors.Cause(err) == ErrProvinceNotFound {
			return Institution{}, core.NewValidationError(err, core.FieldError{Field: "province_id", Error: err.Error()})
		}
		return Institution{}, err
	}
	if _, err := svc.repo.GetLookup(ctx, KindEducationLevel, ni.LevelID); err != nil {
		if errors.Cause(err) == ErrLookupNotFound {
			return Institution{}, core.NewValidationError(err, core.FieldError{Field: "level_id", Error: "education level not found"})
		}
		return Institution{}, err
	}

	inst, err := svc.repo.CreateInstitution(ctx, Institution{
		AdminID:    adminID,
		Name:       ni.Name,
		Code:       ni.Code,
		Address:    ni.Address,
		Email:      ni.Email,
		ProvinceID: ni.ProvinceID,
		LevelID:    ni.LevelID,
	})
	if errors.Cause(err) == ErrCodeExists {
		return Institution{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return inst, err
}

package catalog

import (
	"github.com/go-playground/validator/v10"

	"github.com/jhoelito123/PyStart/core"
)

// Kind names a simple lookup table made of an id and a name.
type Kind string

const (
	KindEducationLevel Kind = "education-levels"
	KindModule         Kind = "modules"
	KindLanguage       Kind = "languages"
	KindDifficulty     Kind = "difficulties"
	KindResourceType   Kind = "resource-types"
)

var Kinds = []Kind{KindEducationLevel, KindModule, KindLanguage, KindDifficulty, KindResourceType}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type Lookup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Department struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type Province struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DepartmentID int    `json:"department_id"`
}

type Institution struct {
	ID         int    `json:"id"`
	AdminID    int    `json:"admin_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Address    string `json:"address"`
	Email      string `json:"email"`
	ProvinceID int    `json:"province_id"`
	LevelID    int    `json:"level_id"`
}

type NewLookup struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

func (nl *NewLookup) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	return validate.Struct(nl)
}

type NewDepartment struct {
	Name      string `json:"name" validate:"notblank,max=100"`
	ShortName string `json:"short_name" validate:"notblank,max=10"`
}

func (nd *NewDepartment) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.ShortName = core.CleanString(nd.ShortName)
	return validate.Struct(nd)
}

type NewProvince struct {
	Name         string `json:"name" validate:"notblank,max=100"`
	DepartmentID int    `json:"department_id" validate:"required,min=1"`
}

func (np *NewProvince) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	return validate.Struct(np)
}

type NewInstitution struct {
	Name       string `json:"name" validate:"notblank,max=150"`
	Code       string `json:"code" validate:"notblank,max=30"`
	Address    string `json:"address" validate:"max=200"`
	Email      string `json:"email" validate:"required,email"`
	ProvinceID int    `json:"province_id" validate:"required,min=1"`
	LevelID    int    `json:"level_id" validate:"required,min=1"`
}

func (ni *NewInstitution) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Code = core.CleanString(ni.Code)
	ni.Address = core.CleanString(ni.Address)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	return validate.Struct(ni)
}

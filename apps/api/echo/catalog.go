package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core/catalog"
)

type catalogApi struct {
	svc      *catalog.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service, validate *validator.Validate) {
	api := catalogApi{svc: svc, validate: validate}

	g.GET("/departments", api.listDepartments)
	g.GET("/departments/:id", api.retrieveDepartment)
	g.GET("/departments/:id/provinces", api.listDepartmentProvinces)
	g.GET("/provinces", api.listProvinces)
	g.GET("/provinces/:id", api.retrieveProvince)
	g.GET("/institutions", api.listInstitutions)
	for _, kind := range catalog.Kinds {
		g.GET("/"+string(kind), api.listLookups(kind))
	}

	admin := []echo.MiddlewareFunc{jwt, adminMiddleware()}
	g.POST("/lookups/:kind", api.createLookup, admin...)
	g.POST("/departments", api.createDepartment, admin...)
	g.POST("/provinces", api.createProvince, admin...)
	g.POST("/institutions", api.createInstitution, admin...)
}

func (api *catalogApi) listLookups(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		lookups, err := api.svc.ListLookups(ctx.Request().Context(), kind)
		if err != nil {
			return errors.Wrapf(err, "listing %s", kind)
		}
		return ctx.JSON(http.StatusOK, lookups)
	}
}

func (api *catalogApi) createLookup(ctx echo.Context) error {
	kind := catalog.Kind(ctx.Param("kind"))
	if !kind.Valid() {
		return errHttpNotFound
	}
	var data catalog.NewLookup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLookup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	lookup, err := api.svc.CreateLookup(ctx.Request().Context(), kind, data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", kind)
	}
	return ctx.JSON(http.StatusCreated, lookup)
}

func (api *catalogApi) listDepartments(ctx echo.Context) error {
	deps, err := api.svc.ListDepartments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing departments")
	}
	return ctx.JSON(http.StatusOK, deps)
}

func (api *catalogApi) retrieveDepartment(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	dep, err := api.svc.GetDepartment(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting department")
	}
	return ctx.JSON(http.StatusOK, dep)
}

func (api *catalogApi) createDepartment(ctx echo.Context) error {
	var data catalog.NewDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDepartment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	dep, err := api.svc.CreateDepartment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dep)
}

func (api *catalogApi) listDepartmentProvinces(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	provs, err := api.svc.ListProvinces(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing provinces")
	}
	return ctx.JSON(http.StatusOK, provs)
}

func (api *catalogApi) listProvinces(ctx echo.Context) error {
	depID, err := queryID(ctx, "department_id")
	if err != nil {
		return err
	}
	provs, err := api.svc.ListProvinces(ctx.Request().Context(), depID)
	if err != nil {
		return errors.Wrap(err, "listing provinces")
	}
	return ctx.JSON(http.StatusOK, provs)
}

func (api *catalogApi) retrieveProvince(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	prov, err := api.svc.GetProvince(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting province")
	}
	return ctx.JSON(http.StatusOK, prov)
}

func (api *catalogApi) createProvince(ctx echo.Context) error {
	var data catalog.NewProvince
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProvince")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	prov, err := api.svc.CreateProvince(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating province")
	}
	return ctx.JSON(http.StatusCreated, prov)
}

func (api *catalogApi) listInstitutions(ctx echo.Context) error {
	insts, err := api.svc.ListInstitutions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing institutions")
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *catalogApi) createInstitution(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data catalog.NewInstitution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstitution")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	inst, err := api.svc.CreateInstitution(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return errors.Wrap(err, "creating institution")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

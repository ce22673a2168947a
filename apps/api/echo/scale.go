package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
)

type (
	scaleApi struct {
		service *scale.Service
	}

	usGrade struct {
		Letter string  `json:"letter"`
		Point  float64 `json:"point"`
	}
)

func registerScaleAPI(g *echo.Group, svc *scale.Service) {
	api := scaleApi{service: svc}

	scales := g.Group("/scales")
	scales.GET("", api.query)
	scales.POST("", api.create)
	scales.GET("/suggest", api.suggest)
	scales.GET("/:id", api.retrieve)
	scales.PUT("/:id", api.update)
	scales.DELETE("/:id", api.delete)

	g.GET("/countries", api.countries)
	g.GET("/us-grades", api.usGrades)
}

func (api scaleApi) query(ctx echo.Context) error {
	scales, err := api.service.Query(ctx.Request().Context(), bindScaleFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "querying scales")
	}
	return ctx.JSON(http.StatusOK, scales)
}

func (api scaleApi) create(ctx echo.Context) error {
	var data scale.NewGradingScale
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	sc, err := api.service.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating scale")
	}
	return ctx.JSON(http.StatusCreated, sc)
}

func (api scaleApi) retrieve(ctx echo.Context) error {
	sc, err := api.service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving scale")
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (api scaleApi) update(ctx echo.Context) error {
	var data scale.NewGradingScale
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	sc, err := api.service.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating scale")
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (api scaleApi) delete(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting scale")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api scaleApi) suggest(ctx echo.Context) error {
	names, err := api.service.Suggest(ctx.Request().Context(), ctx.QueryParam(nameParam))
	if err != nil {
		return errors.Wrap(err, "suggesting scales")
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api scaleApi) countries(ctx echo.Context) error {
	countries, err := api.service.Countries(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing countries")
	}
	return ctx.JSON(http.StatusOK, countries)
}

func (api scaleApi) usGrades(ctx echo.Context) error {
	letters := gpa.Letters()
	grades := make([]usGrade, 0, len(letters))
	for _, l := range letters {
		p, _ := gpa.PointForLetter(l)
		grades = append(grades, usGrade{Letter: l, Point: p})
	}
	return ctx.JSON(http.StatusOK, grades)
}

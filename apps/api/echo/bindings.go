package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
)

const (
	searchParam  = "search"
	countryParam = "country"
	levelParam   = "level"
	scaleParam   = "scale"
	nameParam    = "name"
)

func bindScaleFilter(ctx echo.Context) *scale.QueryFilter {
	return &scale.QueryFilter{
		Search:  ctx.QueryParam(searchParam),
		Country: ctx.QueryParam(countryParam),
		Level:   ctx.QueryParam(levelParam),
	}
}

func bindStudentFilter(ctx echo.Context) *student.QueryFilter {
	return &student.QueryFilter{
		Search:    ctx.QueryParam(searchParam),
		ScaleName: ctx.QueryParam(scaleParam),
	}
}

type exportRequest struct {
	Level string `query:"level" json:"level" validate:"required,level"`
}

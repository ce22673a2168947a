package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	exportsvc "github.com/trezcool/credeval/services/export"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type (
	studentApi struct {
		service *student.Service
		scales  *scale.Service
	}

	gpaResponse struct {
		Student student.Student `json:"student"`
		Result  gpa.Result      `json:"result"`
	}

	evenWeightResponse struct {
		Student student.Student `json:"student"`
		Factors []float64       `json:"factors"`
	}

	computeResponse struct {
		Transcripts []gpa.Transcript `json:"transcripts"`
		Result      gpa.Result       `json:"result"`
	}
)

func registerStudentAPI(g *echo.Group, svc *student.Service, scales *scale.Service) {
	api := studentApi{service: svc, scales: scales}

	students := g.Group("/students")
	students.GET("", api.query)
	students.POST("", api.create)
	students.GET("/:id", api.retrieve)
	students.PUT("/:id", api.update)
	students.DELETE("/:id", api.delete)
	students.POST("/:id/gpa", api.computeGPA)
	students.POST("/:id/even-weight", api.evenWeight)
	students.GET("/:id/export", api.export)
}

// registerGPAAPI exposes the stateless calculator.
func registerGPAAPI(g *echo.Group, svc *student.Service) {
	api := studentApi{service: svc}
	g.POST("/gpa", api.compute)
}

func (api studentApi) query(ctx echo.Context) error {
	students, err := api.service.Query(ctx.Request().Context(), bindStudentFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	st, err := api.service.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api studentApi) retrieve(ctx echo.Context) error {
	st, err := api.service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	st, err := api.service.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api studentApi) delete(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentApi) computeGPA(ctx echo.Context) error {
	st, res, err := api.service.ComputeGPA(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing gpa")
	}
	return ctx.JSON(http.StatusOK, gpaResponse{Student: st, Result: res})
}

func (api studentApi) evenWeight(ctx echo.Context) error {
	var data student.EvenWeightInput
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	st, factors, err := api.service.EvenWeight(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "even-weighting transcripts")
	}
	return ctx.JSON(http.StatusOK, evenWeightResponse{Student: st, Factors: factors})
}

func (api studentApi) export(ctx echo.Context) error {
	var req exportRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	st, err := api.service.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	scales, err := api.scales.Scales(reqCtx, st.ScaleNames()...)
	if err != nil {
		return errors.Wrap(err, "resolving scales")
	}

	var buf bytes.Buffer
	if err = exportsvc.WriteTranscripts(&buf, st, scales, req.Level); err != nil {
		return errors.Wrap(err, "exporting transcripts")
	}

	filename := fmt.Sprintf("%s_%s.xlsx", strings.ReplaceAll(st.FullName(), " ", "_"), strings.ReplaceAll(req.Level, " ", ""))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (api studentApi) compute(ctx echo.Context) error {
	var data student.ComputeInput
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	transcripts, res, err := api.service.Compute(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "computing gpa")
	}
	return ctx.JSON(http.StatusOK, computeResponse{Transcripts: transcripts, Result: res})
}

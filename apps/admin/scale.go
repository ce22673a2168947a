package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	exportsvc "github.com/trezcool/credeval/services/export"
)

// DefaultScaleName is the grading scale created by seed: every US letter maps to itself.
const DefaultScaleName = "US Standard"

func (cli *commandLine) seed() error {
	ctx := context.Background()

	if _, err := cli.scaleSvc.GetByName(ctx, DefaultScaleName); err == nil {
		fmt.Fprintf(cli.out, "grading scale %q already exists\n", DefaultScaleName)
		return nil
	} else if errors.Cause(err) != scale.ErrNotFound {
		return err
	}

	letters := gpa.Letters()
	mappings := make([]scale.NewMapping, 0, len(letters))
	for _, l := range letters {
		mappings = append(mappings, scale.NewMapping{LocalGrade: l, USLetter: l})
	}
	sc, err := cli.scaleSvc.Create(ctx, scale.NewGradingScale{
		Name:     DefaultScaleName,
		Country:  scale.CountryAll,
		Level:    gpa.LevelHighSchool,
		Mappings: mappings,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created grading scale %q (%s)\n", sc.Name, sc.ID)
	return nil
}

func (cli *commandLine) importScale(name, country, level, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mappings, err := exportsvc.ReadMappings(f)
	if err != nil {
		return err
	}
	sc, err := cli.scaleSvc.Create(context.Background(), scale.NewGradingScale{
		Name:     name,
		Country:  country,
		Level:    level,
		Mappings: mappings,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created grading scale %q (%s) with %d mappings\n", sc.Name, sc.ID, len(sc.Mappings))
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/student"
	exportsvc "github.com/trezcool/credeval/services/export"
)

func (cli *commandLine) printGPA(st student.Student) {
	fmt.Fprintf(cli.out, "%s\n", st.FullName())
	fmt.Fprintf(cli.out, "  %s: GPA %.3f, %.2f credits\n", gpa.LevelHighSchool, st.HSGPA, st.HSCredits)
	if st.UniGPA != nil && st.UniCredits != nil {
		fmt.Fprintf(cli.out, "  %s: GPA %.3f, %.2f credits\n", gpa.LevelUniversity, *st.UniGPA, *st.UniCredits)
	}
}

func (cli *commandLine) computeGPA(id string) error {
	st, res, err := cli.studentSvc.ComputeGPA(context.Background(), id)
	if err != nil {
		return err
	}
	cli.printGPA(st)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(cli.out, "  warning: %s\n", d)
	}
	return nil
}

func (cli *commandLine) evenWeight(id string, transcriptIDs []string) error {
	for i := range transcriptIDs {
		transcriptIDs[i] = strings.TrimSpace(transcriptIDs[i])
	}
	st, factors, err := cli.studentSvc.EvenWeight(context.Background(), id, student.EvenWeightInput{TranscriptIDs: transcriptIDs})
	if err != nil {
		return err
	}
	for i, tid := range transcriptIDs {
		fmt.Fprintf(cli.out, "transcript %s: credits x %.4f\n", tid, factors[i])
	}
	cli.printGPA(st)
	return nil
}

func (cli *commandLine) export(id, level, path string) error {
	if !gpa.IsLevel(level) {
		return errors.Errorf("level must be one of: %s", strings.Join(gpa.Levels, ", "))
	}

	ctx := context.Background()
	st, err := cli.studentSvc.Get(ctx, id)
	if err != nil {
		return err
	}
	scales, err := cli.scaleSvc.Scales(ctx, st.ScaleNames()...)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = exportsvc.WriteTranscripts(f, st, scales, level); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "exported %s transcripts of %s to %s\n", level, st.FullName(), path)
	return nil
}

func (cli *commandLine) deleteStudent(id string) error {
	if err := cli.studentSvc.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "deleted student %s\n", id)
	return nil
}

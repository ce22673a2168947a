package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
)

var (
	isTerminalFunc = term.IsTerminal // mockable
	readLineFunc   = readLine        // mockable

	errHelp     = errors.New("help provided")
	errAborted  = errors.New("aborted")
	errNoTTY    = errors.New("confirmation required: run from a terminal or pass -yes")
	errNoSQLDB  = errors.New("migrations require the postgres database engine")
	stdinReader = bufio.NewReader(os.Stdin)
)

const deleteStudentPrompt = "Are you sure you want to delete this student and all associated data (transcripts, courses)? [y/N] "

type commandLine struct {
	db         *sql.DB // nil with the in-memory engine
	scaleSvc   *scale.Service
	studentSvc *student.Service
	out        io.Writer
}

func readLine() (string, error) {
	line, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	fmt.Fprintln(cli.out, "  seed - create the default US grading scale")
	fmt.Fprintln(cli.out, "  importscale -name NAME -country COUNTRY -level LEVEL -file PATH.xlsx - create a grading scale from a spreadsheet")
	fmt.Fprintln(cli.out, "  computegpa -student ID - recompute a student's GPA")
	fmt.Fprintln(cli.out, "  evenweight -student ID -transcripts ID,ID[,...] - give the transcripts the same weight")
	fmt.Fprintln(cli.out, "  export -student ID -level LEVEL -out PATH.xlsx - export a student's transcripts")
	fmt.Fprintln(cli.out, "  deletestudent -student ID [-yes] - delete a student and all associated data")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importScaleCmd := flag.NewFlagSet("importscale", flag.ContinueOnError)
	importScaleName := importScaleCmd.String("name", "", "The grading scale name.")
	importScaleCountry := importScaleCmd.String("country", scale.CountryAll, "The country the scale applies to.")
	importScaleLevel := importScaleCmd.String("level", "", "The academic level: High School or University.")
	importScaleFile := importScaleCmd.String("file", "", "An .xlsx file: local grade in column A, US letter in column B, one header row.")

	computeGPACmd := flag.NewFlagSet("computegpa", flag.ContinueOnError)
	computeGPAStudent := computeGPACmd.String("student", "", "The student ID.")

	evenWeightCmd := flag.NewFlagSet("evenweight", flag.ContinueOnError)
	evenWeightStudent := evenWeightCmd.String("student", "", "The student ID.")
	evenWeightTranscripts := evenWeightCmd.String("transcripts", "", "Comma separated transcript IDs, at least 2.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportStudent := exportCmd.String("student", "", "The student ID.")
	exportLevel := exportCmd.String("level", "", "The academic level: High School or University.")
	exportOut := exportCmd.String("out", "", "The .xlsx file to write.")

	deleteStudentCmd := flag.NewFlagSet("deletestudent", flag.ContinueOnError)
	deleteStudentID := deleteStudentCmd.String("student", "", "The student ID.")
	deleteStudentYes := deleteStudentCmd.Bool("yes", false, "Do not ask for confirmation.")

	for _, fs := range []*flag.FlagSet{importScaleCmd, computeGPACmd, evenWeightCmd, exportCmd, deleteStudentCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seed":
		return cli.seed()

	case "importscale":
		if err := importScaleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importScaleName == "" || *importScaleLevel == "" || *importScaleFile == "" {
			importScaleCmd.Usage()
			return errHelp
		}
		return cli.importScale(*importScaleName, *importScaleCountry, *importScaleLevel, *importScaleFile)

	case "computegpa":
		if err := computeGPACmd.Parse(args[2:]); err != nil {
			return err
		}
		if *computeGPAStudent == "" {
			computeGPACmd.Usage()
			return errHelp
		}
		return cli.computeGPA(*computeGPAStudent)

	case "evenweight":
		if err := evenWeightCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *evenWeightStudent == "" || *evenWeightTranscripts == "" {
			evenWeightCmd.Usage()
			return errHelp
		}
		return cli.evenWeight(*evenWeightStudent, strings.Split(*evenWeightTranscripts, ","))

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportStudent == "" || *exportLevel == "" || *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportStudent, *exportLevel, *exportOut)

	case "deletestudent":
		if err := deleteStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteStudentID == "" {
			deleteStudentCmd.Usage()
			return errHelp
		}
		if !*deleteStudentYes {
			if err := cli.confirm(deleteStudentPrompt); err != nil {
				return err
			}
		}
		return cli.deleteStudent(*deleteStudentID)

	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question on the terminal. Anything but y|yes aborts.
func (cli *commandLine) confirm(prompt string) error {
	if !isTerminalFunc(int(syscall.Stdin)) {
		return errNoTTY
	}
	fmt.Fprint(cli.out, prompt)
	answer, err := readLineFunc()
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

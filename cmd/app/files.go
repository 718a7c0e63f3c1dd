package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/enumerate"
	"github.com/starford/cellcheck/internal/mdsyntax"
	"github.com/starford/cellcheck/internal/storage"
	"github.com/starford/cellcheck/internal/writeback"
)

// errUnnumbered makes `enumerate --check` exit non-zero.
var errUnnumbered = errors.New("checkbox identities need repair")

func enumerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "enumerate",
		Usage:     "Number the table checkboxes of Markdown files in document order",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Report files that need numbering without writing them",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return fmt.Errorf("enumerate: at least one FILE is required")
			}
			return enumerateFiles(cmd.Root().Writer, files, cmd.Bool("check"))
		},
	}
}

func toggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Set one checkbox of a Markdown file by identity",
		ArgsUsage: "FILE ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "checked",
				Usage: "Target state",
				Value: true,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("toggle: expected FILE and ID")
			}
			id, err := strconv.Atoi(cmd.Args().Get(1))
			if err != nil {
				return fmt.Errorf("toggle: invalid ID %q", cmd.Args().Get(1))
			}
			return toggleFile(cmd.Root().Writer, cmd.Args().Get(0), checkbox.State{ID: id, Checked: cmd.Bool("checked")})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "Print the table checkboxes of a Markdown file",
		ArgsUsage: "FILE",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("list: expected FILE")
			}
			return listFile(cmd.Root().Writer, cmd.Args().First())
		},
	}
}

func enumerateFiles(w io.Writer, files []string, check bool) error {
	dirty := 0
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		edits := enumerate.Plan(string(data))
		if len(edits) == 0 {
			continue
		}
		dirty++
		if check {
			fmt.Fprintf(w, "%s: %d identities to assign\n", name, len(edits))
			continue
		}
		if err := writeFileKeepMode(name, []byte(checkbox.ApplyEdits(string(data), edits))); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d identities assigned\n", name, len(edits))
	}
	if check && dirty > 0 {
		return errUnnumbered
	}
	return nil
}

func toggleFile(w io.Writer, name string, target checkbox.State) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	text := string(data)
	if _, ok := writeback.Locate(text, target.ID); !ok {
		return fmt.Errorf("toggle: %s has no checkbox {%d}", name, target.ID)
	}
	updated, changed := writeback.Apply(text, target)
	if changed {
		if err := writeFileKeepMode(name, []byte(updated)); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "%s {%d} %s\n", name, target.ID, checkbox.FormatMarker(target.Checked))
	return nil
}

func listFile(w io.Writer, name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	text := string(data)
	occs := mdsyntax.Checkboxes(text)
	for _, o := range occs {
		id := "{?}"
		if o.Annotated {
			id = checkbox.FormatAnnotation(o.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", checkbox.FormatMarker(o.Checked), id, o.Label(text))
	}
	st := checkbox.Summarize(occs)
	fmt.Fprintf(w, "%d/%d checked (%.0f%%)\n", st.Checked, st.Total, st.Progress)
	return nil
}

// writeFileKeepMode replaces name through a temp file in its directory, so a
// failed write never leaves the note truncated. The mode bits are kept.
func writeFileKeepMode(name string, data []byte) error {
	dir, err := storage.NewFS(filepath.Dir(name))
	if err != nil {
		return err
	}
	return dir.Write(filepath.Base(name), data)
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-lutcam/internal/cube"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.cube>...",
		Short: "Parse .cube files and print their header and corner entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				c, err := cube.ParseFile(p)
				if err != nil {
					return err
				}
				describe(cmd.OutOrStdout(), p, c)
			}
			return nil
		},
	}
}

func describe(w io.Writer, path string, c *cube.Cube) {
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  name    %s\n", c.Name)
	fmt.Fprintf(w, "  size    %d (%d entries)\n", c.Size, c.Size*c.Size*c.Size)
	fmt.Fprintf(w, "  domain  %v .. %v\n", c.DomainMin, c.DomainMax)
	n := c.Size - 1
	for _, k := range []struct {
		label   string
		r, g, b int
	}{
		{"black", 0, 0, 0},
		{"red", n, 0, 0},
		{"green", 0, n, 0},
		{"blue", 0, 0, n},
		{"white", n, n, n},
	} {
		r, g, b := c.At(k.r, k.g, k.b)
		fmt.Fprintf(w, "  %-7s %.4f %.4f %.4f\n", k.label, r, g, b)
	}
}

func genCmd() *cobra.Command {
	var size int
	var title string
	c := &cobra.Command{
		Use:   "gen <out.cube>",
		Short: "Write an identity .cube file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) (err error) {
			if size < cube.MinSize || size > cube.MaxSize {
				return fmt.Errorf("size %d outside [%d,%d]", size, cube.MinSize, cube.MaxSize)
			}
			fh, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if cerr := fh.Close(); err == nil {
					err = cerr
				}
			}()
			return cube.Encode(fh, cube.Identity(title, size))
		},
	}
	c.Flags().IntVarP(&size, "size", "n", 33, "lattice points per axis")
	c.Flags().StringVar(&title, "title", "identity", "TITLE written to the file")
	return c
}

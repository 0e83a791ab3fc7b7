package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/navbake/pkg/pack"
)

func PackCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "pack",
		Short: "asset pack tooling",
	}
	c.AddCommand(packCreateCmd(), packListCmd())
	return c
}

func packCreateCmd() *cobra.Command {
	var ext string
	c := &cobra.Command{
		Use:   "create <out.pak> <dir>",
		Short: "pack the asset documents of a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, dir := args[0], args[1]
			w, err := pack.Create(out)
			if err != nil {
				return err
			}

			count := 0
			err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || (ext != "" && !strings.EqualFold(filepath.Ext(path), ext)) {
					return nil
				}
				rel, err := filepath.Rel(dir, path)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				count++
				return w.Add(filepath.ToSlash(rel), data)
			})
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(out)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %d files into %s\n", count, out)
			return nil
		},
	}
	c.Flags().StringVar(&ext, "ext", ".pxad", "Only pack files with this extension (empty for all)")
	return c
}

func packListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file.pak>",
		Short: "list the files of an asset pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := pack.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			w := cmd.OutOrStdout()
			files := archive.List()
			for _, name := range files {
				e, _ := archive.Stat(name)
				fmt.Fprintf(w, "%10d %10d  %s\n", e.UncompressedSize, e.CompressedSize, name)
			}
			fmt.Fprintf(w, "%d files\n", len(files))
			return nil
		},
	}
}

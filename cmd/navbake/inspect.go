package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Faultbox/navbake/internal/detour"
)

func InspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.navmesh>",
		Short: "print the content of a navmesh artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			nav, err := detour.ReadNavMeshSet(bufio.NewReader(f))
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			printNavMesh(cmd.OutOrStdout(), nav)
			return nil
		},
	}
}

func printNavMesh(w io.Writer, nav *detour.NavMesh) {
	p := nav.Params()
	s := nav.Stats()

	fmt.Fprintf(w, "Origin:     %.3f %.3f %.3f\n", p.Orig[0], p.Orig[1], p.Orig[2])
	fmt.Fprintf(w, "Tile size:  %.3f x %.3f\n", p.TileWidth, p.TileHeight)
	fmt.Fprintf(w, "Tiles:      %d (max %d)\n", s.Tiles, p.MaxTiles)
	fmt.Fprintf(w, "Polygons:   %d\n", s.Polys)
	fmt.Fprintf(w, "Vertices:   %d\n", s.Verts)
	fmt.Fprintf(w, "Links:      %d\n", s.Links)
	fmt.Fprintf(w, "BV nodes:   %d\n", s.BVNodes)
	fmt.Fprintf(w, "Detail:     %d tris\n", s.Detail)
	fmt.Fprintf(w, "Walk:       %d\n", s.Walk)
	fmt.Fprintf(w, "Swim:       %d\n", s.Swim)
	fmt.Fprintf(w, "Disabled:   %d\n", s.Disabled)

	areas := make([]int, 0, len(s.Areas))
	for a := range s.Areas {
		areas = append(areas, int(a))
	}
	sort.Ints(areas)
	for _, a := range areas {
		fmt.Fprintf(w, "  area %3d: %d\n", a, s.Areas[uint8(a)])
	}
}

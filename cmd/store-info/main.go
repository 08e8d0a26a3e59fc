// Command store-info prints the schema of a biomass store: extent, spatial
// reference, and the species band table. Useful to sanity check a store
// before a long metrics run.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/source"
)

func main() {
	var storePath string
	flag.StringVar(&storePath, "store", "", "path to the biomass zarr store")
	flag.Parse()

	if storePath == "" && flag.NArg() > 0 {
		storePath = flag.Arg(0)
	}
	if storePath == "" {
		log.Fatal("usage: store-info -store <path>")
	}

	src, err := source.Open(storePath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	gt := src.Transform()
	fmt.Printf("store:     %s\n", storePath)
	fmt.Printf("extent:    %d rows x %d cols, %d species bands\n", src.Height(), src.Width(), src.Bands())
	fmt.Printf("crs:       %s\n", src.CRS())
	fmt.Printf("transform: origin (%.2f, %.2f), pixel %.2f x %.2f\n", gt[0], gt[3], gt[1], gt[5])

	fmt.Println("\nband  code  name")
	codes, names := src.SpeciesCodes(), src.SpeciesNames()
	for i, code := range codes {
		fmt.Printf("%4d  %-5s %s\n", i, code, names[i])
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"niftistream/internal/models"
	"niftistream/pkg/config"
	"niftistream/pkg/nifti"
	"niftistream/pkg/stream"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "NIfTI file to stream (.nii or .nii.gz)")
	configPath := flag.String("config", "niftistream.yaml", "Optional YAML configuration file")
	sliceDim := flag.Int("slice-dim", -1, "Slice dimension: 2 (planes), 3 (volumes), 4 (timepoints), 0 (raw chunks); -1 uses the config value")
	headerOnly := flag.Bool("header-only", false, "Stop after the header has been parsed")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration and apply flag overrides
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *sliceDim >= 0 {
		cfg.Stream.SliceDimension = *sliceDim
	}
	if *headerOnly {
		cfg.Stream.HeaderOnly = true
	}
	if *verbose || cfg.Output.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	f, err := os.Open(*inputFile)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	defer f.Close()

	fmt.Println("================================")
	fmt.Println("NIFTISTREAM - INCREMENTAL NIFTI-1/2 DECODER")
	fmt.Println("================================")

	var (
		sliceCount int64
		sliceBytes int64
		last       models.SliceChunk
		streamErr  error
	)

	session := stream.NewSession(stream.Options{
		SliceDim: cfg.Stream.SliceDimension,
		OnHeader: func(h *nifti.Header) bool {
			printHeader(h, cfg)
			return cfg.Stream.HeaderOnly
		},
		OnExtension: func(ext *nifti.Extension) bool {
			if ext == nil {
				fmt.Println("No header extensions present")
				return false
			}
			fmt.Printf("Extension: code=%d size=%d bytes\n", ext.Code, ext.Size)
			return false
		},
		OnSlice: func(data []byte, indices []int64, h *nifti.Header) bool {
			last = models.SliceChunk{Data: data, Indices: indices, Number: sliceCount}
			sliceCount++
			sliceBytes += int64(len(data))
			log.WithFields(log.Fields{
				"chunk":   last.Number,
				"bytes":   len(data),
				"indices": indices,
			}).Debug("Received chunk")
			return false
		},
		OnError: func(err error) {
			streamErr = err
		},
	})
	session.Run(f)

	if streamErr != nil {
		log.Fatalf("Streaming failed: %v", streamErr)
	}

	if sliceCount > 0 {
		fmt.Printf("\nDelivered %d chunks, %d bytes of image data\n", sliceCount, sliceBytes)
		fmt.Printf("Last chunk index: %v\n", last.Indices)
	}
}

// printHeader writes a short summary of the parsed header and, when
// configured, the derived voxel-to-world transform.
func printHeader(h *nifti.Header, cfg *config.Config) {
	geo := models.GeometryFromHeader(h)

	fmt.Printf("Format: NIfTI-%d (%s), byte order %v\n", h.Version, h.Magic, h.Order)
	fmt.Printf("Dimensions: %v (%d voxels, %d bytes/voxel)\n", geo.Dims, geo.VoxelCount(), geo.BytesPerVoxel)
	fmt.Printf("Spacings: %v (space units %d, time units %d)\n", geo.Spacings, geo.SpaceUnits, geo.TimeUnits)
	fmt.Printf("Datatype: %d, bitpix %d\n", h.Datatype, h.Bitpix)
	if h.Descrip != "" {
		fmt.Printf("Description: %s\n", h.Descrip)
	}

	if cfg.Output.ShowAffine {
		affine := nifti.Affine(h)
		fmt.Printf("Voxel-to-world transform:\n%v\n",
			mat.Formatted(affine, mat.Prefix("  "), mat.Squeeze()))
	}
}

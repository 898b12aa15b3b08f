package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/redboxdb"
)

func newBenchCmd() *cobra.Command {
	var (
		dim     int
		rows    int
		queries int
		topN    int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Ingest and query a throwaway local database, reporting timings",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.MkdirTemp("", "redboxdb-bench")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			db, err := redboxdb.Open(filepath.Join(dir, "bench.db"), dim, rows)
			if err != nil {
				return err
			}
			defer db.Close()

			rng := rand.New(rand.NewSource(seed))
			vec := make([]float32, dim)

			ingestStart := time.Now()
			for i := 0; i < rows; i++ {
				for j := range vec {
					vec[j] = rng.Float32()
				}
				if _, err := db.InsertAuto(vec); err != nil {
					return err
				}
			}
			ingest := time.Since(ingestStart)

			queryStart := time.Now()
			for i := 0; i < queries; i++ {
				for j := range vec {
					vec[j] = rng.Float32()
				}
				if topN <= 1 {
					if _, err := db.Search(vec); err != nil {
						return err
					}
				} else {
					if _, err := db.SearchN(vec, topN); err != nil {
						return err
					}
				}
			}
			query := time.Since(queryStart)

			fmt.Printf("kernel:  %s\n", db.Kernel())
			fmt.Printf("ingest:  %d rows in %v (%.0f rows/s)\n",
				rows, ingest.Round(time.Millisecond), float64(rows)/ingest.Seconds())
			fmt.Printf("queries: %d in %v (%.0f qps, %v/query)\n",
				queries, query.Round(time.Millisecond), float64(queries)/query.Seconds(),
				(query / time.Duration(max(queries, 1))).Round(time.Microsecond))

			return nil
		},
	}

	cmd.Flags().IntVar(&dim, "dim", 128, "vector dimension")
	cmd.Flags().IntVar(&rows, "rows", 100000, "rows to ingest")
	cmd.Flags().IntVar(&queries, "queries", 1000, "queries to run")
	cmd.Flags().IntVar(&topN, "top-n", 1, "neighbors per query (1 uses SEARCH, >1 SEARCH_N)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed")

	return cmd
}

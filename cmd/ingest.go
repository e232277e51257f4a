package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docochat/src/core/ingest"
	"docochat/src/extract"
	"docochat/src/storage/postgres/userctrl"
)

var ingestUserID string

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents from the command line",
	Long:  `The ingest command runs the ingestion pipeline directly against local files, bypassing the HTTP API.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	settingDefaultConfig()

	ingestCmd.Flags().StringVar(&ingestUserID, "user", "", "ID of the user owning the documents")
	ingestCmd.MarkFlagRequired("user")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := newPostgresDB()
	if err != nil {
		return err
	}
	defer closeDB(db)

	usePgvector := viper.GetString("vector.backend") == "pgvector"
	if err := migrate(db, usePgvector); err != nil {
		return err
	}

	chunkStore, err := newChunkBackend(ctx, db)
	if err != nil {
		return err
	}

	provider, err := newLLMProvider()
	if err != nil {
		return err
	}

	chunker := ingest.NewChunker(
		viper.GetInt("ingest.chunk_size"),
		viper.GetInt("ingest.chunk_overlap"),
	)
	ingestService := ingest.NewService(chunker, provider, chunkStore, userctrl.NewUserService(db))

	bar := progressbar.Default(int64(len(args)), "ingesting")

	totalChunks := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", path, err)
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		mimeType, ok := extract.MIMEForExt(ext)
		if !ok {
			return fmt.Errorf("%w: %s", extract.ErrUnsupportedType, path)
		}

		summary, err := ingestService.Ingest(ctx, ingest.Document{
			UserID:   ingestUserID,
			FileName: filepath.Base(path),
			MIMEType: mimeType,
			Size:     int64(len(data)),
			Data:     data,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		totalChunks += summary.Chunks
		bar.Add(1)
	}

	fmt.Printf("ingested %d files, %d chunks\n", len(args), totalChunks)
	return nil
}

// Package importer loads deck cards from a spreadsheet or CSV file. Rows
// become immutable cards; a row whose (deck, note guid) pair already exists
// is skipped, so re-importing the same file is safe.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/example/listenbot/pkg/models"
)

// CardWriter is the storage slice the importer needs. Insert reports false
// when the card's note guid is already present in the deck. FindFileIDBySHA
// resolves a content hash to an already-uploaded provider file id, "" when
// the hash is unknown.
type CardWriter interface {
	Insert(ctx context.Context, card *models.Card) (bool, error)
	FindFileIDBySHA(ctx context.Context, sha256 string) (string, error)
}

// TranslationAttacher caches and links a secondary-language line for a card.
type TranslationAttacher interface {
	AttachToCard(ctx context.Context, cardID, text string) error
}

// Config defines the import layout. Columns are 0-based indexes into each
// row.
type Config struct {
	FilePath     string
	SheetName    string
	StartRow     int // 1-based first data row
	GUIDColumn   int
	AnswerColumn int
	AltsColumn   int // alternates separated by "|"
	KindColumn   int // "audio" or "video"
	FileIDColumn int
	SHAColumn    int
}

// DefaultConfig returns the layout the export tooling produces.
func DefaultConfig(path string) Config {
	return Config{
		FilePath:     path,
		SheetName:    "Sheet1",
		StartRow:     2,
		GUIDColumn:   0,
		AnswerColumn: 1,
		AltsColumn:   2,
		KindColumn:   3,
		FileIDColumn: 4,
		SHAColumn:    5,
	}
}

// Result summarizes one import run.
type Result struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer writes spreadsheet rows into a deck.
type Importer struct {
	cards        CardWriter
	translations TranslationAttacher
}

// New creates an importer over a card store. translations may be nil; then
// cards are imported without a secondary-language line.
func New(cards CardWriter, translations TranslationAttacher) *Importer {
	return &Importer{cards: cards, translations: translations}
}

// ImportDeck reads the configured file and inserts its rows as cards of
// deckID. Bad rows are recorded in the result and do not stop the run.
func (im *Importer) ImportDeck(ctx context.Context, deckID string, config Config) (*Result, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}

	result := &Result{Errors: []string{}}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++
		created, err := im.importRow(ctx, deckID, row, config)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, deckID string, row []string, config Config) (bool, error) {
	answer := strings.TrimSpace(cell(row, config.AnswerColumn))
	if answer == "" {
		return false, fmt.Errorf("empty answer text")
	}
	guid := strings.TrimSpace(cell(row, config.GUIDColumn))
	if guid == "" {
		return false, fmt.Errorf("empty note guid")
	}
	kind := strings.ToLower(strings.TrimSpace(cell(row, config.KindColumn)))
	if kind == "" {
		kind = models.MediaAudio
	}
	if kind != models.MediaAudio && kind != models.MediaVideo {
		return false, fmt.Errorf("unknown media kind %q", kind)
	}

	var alts models.StringList
	for _, a := range strings.Split(cell(row, config.AltsColumn), "|") {
		a = strings.TrimSpace(a)
		if a != "" {
			alts = append(alts, a)
		}
	}

	fileID := strings.TrimSpace(cell(row, config.FileIDColumn))
	sha := strings.TrimSpace(cell(row, config.SHAColumn))
	if fileID == "" && sha != "" {
		// the same media may already be uploaded under another card
		known, err := im.cards.FindFileIDBySHA(ctx, sha)
		if err != nil {
			return false, err
		}
		fileID = known
	}
	if fileID == "" {
		return false, fmt.Errorf("no media file id and unknown media hash")
	}

	card := &models.Card{
		ID:          uuid.NewString(),
		DeckID:      deckID,
		NoteGUID:    guid,
		AnswerText:  answer,
		AltAnswers:  alts,
		MediaKind:   kind,
		FileID:      fileID,
		MediaSHA256: sha,
		IsValid:     true,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := im.cards.Insert(ctx, card)
	if err != nil || !created {
		return created, err
	}
	if im.translations != nil {
		// best effort: an untranslated card is still studyable
		if err := im.translations.AttachToCard(ctx, card.ID, card.AnswerText); err != nil {
			log.Printf("import: translation for %s: %v", card.NoteGUID, err)
		}
	}
	return true, nil
}

func readRows(config Config) ([][]string, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return readCSV(config.FilePath)
	}
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()
	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", config.SheetName, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

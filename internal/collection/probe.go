// Package collection reads due-card counts straight from the review
// application's SQLite collection file.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// AllCategories disables deck scoping.
const AllCategories = "all"

// Card queue values as stored in cards.queue. Negative queues (suspended and
// buried) never count as actionable.
const (
	queueNew      = 0
	queueLearn    = 1
	queueReview   = 2
	queueDayLearn = 3
)

const deckSeparator = "::"

// Counts splits the actionable total into its two queries.
type Counts struct {
	New int
	Due int
}

func (c Counts) Total() int { return c.New + c.Due }

// Probe answers due-count questions against a collection file. Every call
// opens and closes its own read-only connection so the review application
// never sees a long-lived lock from us.
type Probe struct {
	Path   string
	Logger *slog.Logger
	Now    func() time.Time
}

func NewProbe(path string, logger *slog.Logger) *Probe {
	return &Probe{Path: path, Logger: logger}
}

func (p *Probe) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Probe) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Probe) open() (*sqlx.DB, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("no collection path configured")
	}
	dsn := "file:" + (&url.URL{Path: p.Path}).EscapedPath() + "?mode=ro&_pragma=busy_timeout(2000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}
	return db, nil
}

// DueCount returns the number of new plus due cards for category. Failures
// are logged and reported as zero.
func (p *Probe) DueCount(ctx context.Context, category string) int {
	counts, err := p.Counts(ctx, category)
	if err != nil {
		p.logger().Error("error counting cards", "category", category, "error", err)
		return 0
	}
	return counts.Total()
}

// Counts runs the new-card and due-card queries for category.
func (p *Probe) Counts(ctx context.Context, category string) (Counts, error) {
	db, err := p.open()
	if err != nil {
		return Counts{}, err
	}
	defer db.Close()

	var crt int64
	if err := db.GetContext(ctx, &crt, "SELECT crt FROM col LIMIT 1"); err != nil {
		return Counts{}, fmt.Errorf("reading collection creation time: %w", err)
	}

	var deckIDs []int64
	scoped := category != "" && category != AllCategories
	if scoped {
		decks, err := loadDecks(ctx, db)
		if err != nil {
			return Counts{}, err
		}
		deckIDs = matchingDecks(decks, category)
		if len(deckIDs) == 0 {
			return Counts{}, nil
		}
	}

	now := p.now().Unix()
	today := (now - crt) / 86400

	var counts Counts
	newQuery, newArgs, err := scopedQuery(
		"SELECT COUNT(*) FROM cards WHERE queue = ?",
		[]any{queueNew}, deckIDs)
	if err != nil {
		return Counts{}, err
	}
	if err := db.GetContext(ctx, &counts.New, db.Rebind(newQuery), newArgs...); err != nil {
		return Counts{}, fmt.Errorf("counting new cards: %w", err)
	}

	dueQuery, dueArgs, err := scopedQuery(
		"SELECT COUNT(*) FROM cards WHERE ((queue IN (?, ?) AND due <= ?) OR (queue = ? AND due <= ?))",
		[]any{queueReview, queueDayLearn, today, queueLearn, now}, deckIDs)
	if err != nil {
		return Counts{}, err
	}
	if err := db.GetContext(ctx, &counts.Due, db.Rebind(dueQuery), dueArgs...); err != nil {
		return Counts{}, fmt.Errorf("counting due cards: %w", err)
	}

	return counts, nil
}

// Categories lists "all" followed by every deck name in sorted order. On
// failure only "all" is returned.
func (p *Probe) Categories(ctx context.Context) []string {
	names := []string{AllCategories}

	db, err := p.open()
	if err != nil {
		p.logger().Error("error listing decks", "error", err)
		return names
	}
	defer db.Close()

	decks, err := loadDecks(ctx, db)
	if err != nil {
		p.logger().Error("error listing decks", "error", err)
		return names
	}

	deckNames := make([]string, 0, len(decks))
	for _, d := range decks {
		deckNames = append(deckNames, d.Name)
	}
	slices.Sort(deckNames)
	return append(names, deckNames...)
}

type deck struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// loadDecks reads the decks table, falling back to the JSON blob older
// collections keep in col.decks.
func loadDecks(ctx context.Context, db *sqlx.DB) ([]deck, error) {
	var decks []deck
	if err := db.SelectContext(ctx, &decks, "SELECT id, name FROM decks"); err == nil {
		for i := range decks {
			decks[i].Name = strings.ReplaceAll(decks[i].Name, "\x1f", deckSeparator)
		}
		return decks, nil
	}

	var blob string
	if err := db.GetContext(ctx, &blob, "SELECT decks FROM col LIMIT 1"); err != nil {
		return nil, fmt.Errorf("reading decks: %w", err)
	}

	var byID map[string]deck
	if err := json.Unmarshal([]byte(blob), &byID); err != nil {
		return nil, fmt.Errorf("parsing decks: %w", err)
	}
	decks = make([]deck, 0, len(byID))
	for _, d := range byID {
		decks = append(decks, d)
	}
	return decks, nil
}

// matchingDecks returns the deck named category and all of its children.
func matchingDecks(decks []deck, category string) []int64 {
	var ids []int64
	for _, d := range decks {
		if strings.EqualFold(d.Name, category) ||
			strings.HasPrefix(strings.ToLower(d.Name), strings.ToLower(category)+deckSeparator) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func scopedQuery(base string, args []any, deckIDs []int64) (string, []any, error) {
	if len(deckIDs) == 0 {
		return base, args, nil
	}
	query, inArgs, err := sqlx.In(base+" AND did IN (?)", append(args, deckIDs)...)
	if err != nil {
		return "", nil, fmt.Errorf("building deck filter: %w", err)
	}
	return query, inArgs, nil
}

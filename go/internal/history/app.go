package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no result exists for an auction
	ErrNotFound = errors.New("auction not found in history")
	// ErrForbidden is returned when the viewer may not read the history
	ErrForbidden = errors.New("only admins and auctioneers can view auction history")
)

const topSalesLimit = 10

// HistoryRepository defines what the app layer needs from the repository
type HistoryRepository interface {
	AppendAction(ctx context.Context, entry models.HistoryEntry) error
	ListActions(ctx context.Context) ([]models.HistoryEntry, error)
	SaveResult(ctx context.Context, result models.AuctionResult) error
	ListResults(ctx context.Context) ([]models.AuctionResult, error)
}

// Viewer identifies who is reading the history
type Viewer struct {
	Role   models.Role
	UserID string
}

// Filter narrows result listings
type Filter struct {
	Sport        string
	AuctioneerID string
}

// App owns the action log and archived auction results
type App struct {
	repo  HistoryRepository
	clock clockwork.Clock
}

// NewApp creates a new history App
func NewApp(repo HistoryRepository, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// LogAction appends an entry to the action log
func (a *App) LogAction(ctx context.Context, action models.HistoryAction, details map[string]interface{}) error {
	entry := models.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: a.clock.Now().UTC(),
		Action:    action,
		Details:   details,
	}
	if err := a.repo.AppendAction(ctx, entry); err != nil {
		return err
	}
	log.Debug().Str("action", string(action)).Msg("history action logged")
	return nil
}

// Actions returns the action log newest first
func (a *App) Actions(ctx context.Context) ([]models.HistoryEntry, error) {
	entries, err := a.repo.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// RecordResult archives a completed auction
func (a *App) RecordResult(ctx context.Context, result models.AuctionResult) error {
	if result.AuctionID == "" && result.SessionID == "" {
		return fmt.Errorf("validation failed: auction or session ID is required")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.Summary = Summarize(result.PlayerResults)
	if err := a.repo.SaveResult(ctx, result); err != nil {
		return err
	}

	log.Info().
		Str("auction_id", result.AuctionID).
		Str("session_id", result.SessionID).
		Int("players_sold", result.Summary.PlayersSold).
		Float64("total_spent", result.Summary.TotalSpent).
		Msg("auction result archived")
	return nil
}

// Results lists archived auctions newest first. Auctioneers only see their own.
func (a *App) Results(ctx context.Context, viewer Viewer, filter Filter) ([]models.AuctionResult, error) {
	filter, err := scope(viewer, filter)
	if err != nil {
		return nil, err
	}
	all, err := a.repo.ListResults(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.AuctionResult, 0, len(all))
	for _, r := range all {
		if filter.Sport != "" && r.Sport != filter.Sport {
			continue
		}
		if filter.AuctioneerID != "" && r.AuctioneerID != filter.AuctioneerID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

// Result returns the archived result of one auction
func (a *App) Result(ctx context.Context, viewer Viewer, auctionID string) (*models.AuctionResult, error) {
	if _, err := scope(viewer, Filter{}); err != nil {
		return nil, err
	}
	all, err := a.repo.ListResults(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].AuctionID != auctionID {
			continue
		}
		if viewer.Role == models.RoleAuctioneer && all[i].AuctioneerID != viewer.UserID {
			return nil, fmt.Errorf("%w: you can only view your own auction history", ErrForbidden)
		}
		return &all[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
}

// Stats aggregates the archived auctions visible to the viewer
func (a *App) Stats(ctx context.Context, viewer Viewer, filter Filter) (*models.HistoryStats, error) {
	results, err := a.Results(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}
	return Aggregate(results), nil
}

// Summarize computes per-auction totals from lot outcomes
func Summarize(results []models.PlayerResult) models.ResultSummary {
	summary := models.ResultSummary{TotalPlayers: len(results)}
	spent := decimal.Zero
	for _, r := range results {
		if r.Status != models.LotOutcomeSold {
			summary.PlayersUnsold++
			continue
		}
		summary.PlayersSold++
		spent = spent.Add(decimal.NewFromFloat(r.FinalPrice))
		if r.FinalPrice > summary.HighestSale {
			summary.HighestSale = r.FinalPrice
		}
	}
	summary.TotalSpent = spent.InexactFloat64()
	return summary
}

// Aggregate builds statistics across archived auctions
func Aggregate(results []models.AuctionResult) *models.HistoryStats {
	stats := &models.HistoryStats{
		TotalAuctions:    len(results),
		TopSales:         []models.TopSale{},
		SportBreakdown:   map[string]models.SportStats{},
		MonthlyBreakdown: map[string]models.MonthlyStats{},
	}

	total := decimal.Zero
	sportValue := map[string]decimal.Decimal{}
	monthValue := map[string]decimal.Decimal{}
	var duration int64

	for _, r := range results {
		duration += r.TotalDuration
		month := r.CompletedAt.UTC().Format("2006-01")

		sport := stats.SportBreakdown[r.Sport]
		sport.Auctions++
		monthly := stats.MonthlyBreakdown[month]
		monthly.Auctions++

		for _, p := range r.PlayerResults {
			if p.Status != models.LotOutcomeSold {
				stats.TotalPlayersUnsold++
				continue
			}
			stats.TotalPlayersSold++
			sport.PlayersSold++

			price := decimal.NewFromFloat(p.FinalPrice)
			total = total.Add(price)
			sportValue[r.Sport] = sportValue[r.Sport].Add(price)
			monthValue[month] = monthValue[month].Add(price)

			stats.TopSales = append(stats.TopSales, models.TopSale{
				PlayerID:    p.PlayerID,
				PlayerName:  p.PlayerName,
				TeamName:    p.TeamName,
				Price:       p.FinalPrice,
				AuctionName: r.AuctionName,
				Sport:       r.Sport,
				Date:        r.CompletedAt,
			})
		}

		stats.SportBreakdown[r.Sport] = sport
		stats.MonthlyBreakdown[month] = monthly
	}

	stats.TotalValue = total.InexactFloat64()
	for k, v := range stats.SportBreakdown {
		v.TotalValue = sportValue[k].InexactFloat64()
		stats.SportBreakdown[k] = v
	}
	for k, v := range stats.MonthlyBreakdown {
		v.TotalValue = monthValue[k].InexactFloat64()
		stats.MonthlyBreakdown[k] = v
	}
	if len(results) > 0 {
		stats.AverageDuration = duration / int64(len(results))
	}

	sort.SliceStable(stats.TopSales, func(i, j int) bool {
		return stats.TopSales[i].Price > stats.TopSales[j].Price
	})
	if len(stats.TopSales) > topSalesLimit {
		stats.TopSales = stats.TopSales[:topSalesLimit]
	}
	return stats
}

// scope applies viewer access rules to a filter
func scope(viewer Viewer, filter Filter) (Filter, error) {
	switch viewer.Role {
	case models.RoleAdmin:
		return filter, nil
	case models.RoleAuctioneer:
		filter.AuctioneerID = viewer.UserID
		return filter, nil
	default:
		return filter, ErrForbidden
	}
}

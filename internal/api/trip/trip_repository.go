package trip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// PGXPool is the slice of *pgxpool.Pool the repository uses.
type PGXPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ PGXPool = (*pgxpool.Pool)(nil)

// Repository defines the persistence operations for trips, their days and
// their ordered places.
type Repository interface {
	CreateTrip(ctx context.Context, trip types.Trip) error
	RenameTrip(ctx context.Context, tripID uuid.UUID, userID uuid.UUID, title string) error
	DeleteTrip(ctx context.Context, tripID uuid.UUID, userID uuid.UUID) error
	ListTripsByUser(ctx context.Context, userID uuid.UUID) ([]*types.Trip, error)
	GetTrip(ctx context.Context, tripID uuid.UUID) (types.Trip, error)

	CreateDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (uuid.UUID, error)
	GetDayID(ctx context.Context, tripID uuid.UUID, dayNumber int) (uuid.UUID, error)

	InsertPlace(ctx context.Context, dayID uuid.UUID, orderIndex int, stop types.EnrichedStop) (uuid.UUID, error)
	GetItinerary(ctx context.Context, tripID uuid.UUID) (map[int][]types.Place, error)
	NextOrderIndex(ctx context.Context, dayID uuid.UUID) (int, error)
	UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error
	ReorderPlaces(ctx context.Context, updates []types.PlaceOrderUpdate) error
	DeletePlace(ctx context.Context, placeID uuid.UUID) error
	GetPlaceExternalID(ctx context.Context, placeID uuid.UUID) (*string, error)
	GetPlaceImage(ctx context.Context, placeID uuid.UUID) (*string, error)
	GetPlaceExtraDetails(ctx context.Context, placeID uuid.UUID) (json.RawMessage, error)

	TouchTrip(ctx context.Context, tripID uuid.UUID) error
}

// RepositoryImpl struct holds the logger and database connection pool
type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewRepository(pgxpool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

// CreateTrip inserts the trip header row.
func (r *RepositoryImpl) CreateTrip(ctx context.Context, trip types.Trip) error {
	query := `
        INSERT INTO trips (
            id, user_id, title, destination, start_date, end_date,
            no_of_travelers, budget, notes, banner, last_updated
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()
        )
    `
	_, err := r.pgpool.Exec(ctx, query,
		trip.ID, trip.UserID, trip.Title, trip.Destination, trip.StartDate, trip.EndDate,
		trip.NoOfTravelers, trip.Budget, trip.Notes, trip.Banner,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create trip", slog.Any("error", err))
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// RenameTrip sets a new title. The userID guard keeps one user from renaming
// another user's trip through a guessed ID.
func (r *RepositoryImpl) RenameTrip(ctx context.Context, tripID uuid.UUID, userID uuid.UUID, title string) error {
	query := `UPDATE trips SET title = $1, last_updated = NOW() WHERE id = $2 AND user_id = $3`
	tag, err := r.pgpool.Exec(ctx, query, title, tripID, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to rename trip", slog.Any("error", err))
		return fmt.Errorf("failed to rename trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s not found: %w", tripID, pgx.ErrNoRows)
	}
	return nil
}

// DeleteTrip removes the trip header; days and places follow via ON DELETE CASCADE.
func (r *RepositoryImpl) DeleteTrip(ctx context.Context, tripID uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM trips WHERE id = $1 AND user_id = $2`, tripID, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete trip", slog.Any("error", err))
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s not found: %w", tripID, pgx.ErrNoRows)
	}
	return nil
}

// ListTripsByUser returns the user's trip headers, most recently updated first.
func (r *RepositoryImpl) ListTripsByUser(ctx context.Context, userID uuid.UUID) ([]*types.Trip, error) {
	query := `
        SELECT id, user_id, title, destination, start_date, end_date,
               no_of_travelers, budget, notes, banner, last_updated
        FROM trips
        WHERE user_id = $1
        ORDER BY last_updated DESC
    `
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list trips", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*types.Trip
	for rows.Next() {
		var trip types.Trip
		err := rows.Scan(
			&trip.ID, &trip.UserID, &trip.Title, &trip.Destination, &trip.StartDate, &trip.EndDate,
			&trip.NoOfTravelers, &trip.Budget, &trip.Notes, &trip.Banner, &trip.LastUpdated,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan trip", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, &trip)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip rows: %w", err)
	}
	return trips, nil
}

// GetTrip retrieves a single trip header by ID.
func (r *RepositoryImpl) GetTrip(ctx context.Context, tripID uuid.UUID) (types.Trip, error) {
	query := `
        SELECT id, user_id, title, destination, start_date, end_date,
               no_of_travelers, budget, notes, banner, last_updated
        FROM trips
        WHERE id = $1
    `
	var trip types.Trip
	err := r.pgpool.QueryRow(ctx, query, tripID).Scan(
		&trip.ID, &trip.UserID, &trip.Title, &trip.Destination, &trip.StartDate, &trip.EndDate,
		&trip.NoOfTravelers, &trip.Budget, &trip.Notes, &trip.Banner, &trip.LastUpdated,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return types.Trip{}, fmt.Errorf("trip not found: %w", err)
		}
		r.logger.ErrorContext(ctx, "Failed to get trip", slog.Any("error", err))
		return types.Trip{}, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// CreateDay inserts a day row for the trip and returns its ID.
func (r *RepositoryImpl) CreateDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (uuid.UUID, error) {
	var dayID uuid.UUID
	query := `INSERT INTO days (id, trip_id, day_number) VALUES ($1, $2, $3) RETURNING id`
	err := r.pgpool.QueryRow(ctx, query, uuid.New(), tripID, dayNumber).Scan(&dayID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create day", slog.Any("error", err))
		return uuid.Nil, fmt.Errorf("failed to create day %d: %w", dayNumber, err)
	}
	return dayID, nil
}

// GetDayID resolves a trip-relative day number to its row ID.
func (r *RepositoryImpl) GetDayID(ctx context.Context, tripID uuid.UUID, dayNumber int) (uuid.UUID, error) {
	var dayID uuid.UUID
	query := `SELECT id FROM days WHERE trip_id = $1 AND day_number = $2`
	err := r.pgpool.QueryRow(ctx, query, tripID, dayNumber).Scan(&dayID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, fmt.Errorf("day %d not found for trip %s: %w", dayNumber, tripID, err)
		}
		return uuid.Nil, fmt.Errorf("failed to get day: %w", err)
	}
	return dayID, nil
}

// InsertPlace appends a fully enriched stop or lodging row at the given order
// index and returns the new place ID. An empty directory identifier is stored
// as NULL.
func (r *RepositoryImpl) InsertPlace(ctx context.Context, dayID uuid.UUID, orderIndex int, stop types.EnrichedStop) (uuid.UUID, error) {
	var googlePlaceID *string
	if stop.GooglePlaceID != "" {
		googlePlaceID = &stop.GooglePlaceID
	}
	var placeID uuid.UUID
	query := `
        INSERT INTO places (
            id, day_id, google_place_id, order_index, kind, name,
            description, start_time, end_time, image, lat, lng
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        ) RETURNING id
    `
	err := r.pgpool.QueryRow(ctx, query,
		uuid.New(), dayID, googlePlaceID, orderIndex, stop.Kind, stop.Name,
		stop.Description, stop.Start, stop.End, stop.Image, stop.Location.Lat, stop.Location.Lng,
	).Scan(&placeID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err), slog.String("name", stop.Name))
		return uuid.Nil, fmt.Errorf("failed to insert place %q: %w", stop.Name, err)
	}
	return placeID, nil
}

// GetItinerary returns the trip's places keyed by day number, ordered within
// each day. Days that exist but hold no places map to an empty slice. Reading
// an itinerary counts as activity, so last_updated is touched.
func (r *RepositoryImpl) GetItinerary(ctx context.Context, tripID uuid.UUID) (map[int][]types.Place, error) {
	dayRows, err := r.pgpool.Query(ctx, `SELECT day_number FROM days WHERE trip_id = $1 ORDER BY day_number`, tripID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get itinerary days", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get itinerary days: %w", err)
	}
	defer dayRows.Close()

	itinerary := make(map[int][]types.Place)
	for dayRows.Next() {
		var dayNumber int
		if err := dayRows.Scan(&dayNumber); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		itinerary[dayNumber] = []types.Place{}
	}
	if err = dayRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day rows: %w", err)
	}

	query := `
        SELECT p.id, d.day_number, p.google_place_id, p.order_index, p.kind, p.name,
               p.description, p.start_time, p.end_time, p.image, p.lat, p.lng
        FROM places p
        JOIN days d ON p.day_id = d.id
        WHERE d.trip_id = $1
        ORDER BY d.day_number, p.order_index
    `
	rows, err := r.pgpool.Query(ctx, query, tripID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get itinerary places", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get itinerary places: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var place types.Place
		var dayNumber int
		err := rows.Scan(
			&place.ID, &dayNumber, &place.GooglePlaceID, &place.OrderIndex, &place.Kind, &place.Name,
			&place.Description, &place.Start, &place.End, &place.Image, &place.Location.Lat, &place.Location.Lng,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan place", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		itinerary[dayNumber] = append(itinerary[dayNumber], place)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	if err := r.TouchTrip(ctx, tripID); err != nil {
		r.logger.WarnContext(ctx, "Failed to touch trip after itinerary read", slog.Any("error", err))
	}
	return itinerary, nil
}

// NextOrderIndex returns the next free slot at the end of the day.
func (r *RepositoryImpl) NextOrderIndex(ctx context.Context, dayID uuid.UUID) (int, error) {
	var next int
	query := `SELECT COALESCE(MAX(order_index), 0) + 1 FROM places WHERE day_id = $1`
	if err := r.pgpool.QueryRow(ctx, query, dayID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next order index: %w", err)
	}
	return next, nil
}

// UpdatePlace applies the non-nil fields of params. Calling it with nothing to
// change is a caller bug and errors out.
func (r *RepositoryImpl) UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	var setClauses []string
	var args []interface{}
	argIdx := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.StartTime != nil {
		addClause("start_time", *params.StartTime)
	}
	if params.EndTime != nil {
		addClause("end_time", *params.EndTime)
	}
	if params.OrderIndex != nil {
		addClause("order_index", *params.OrderIndex)
	}
	if params.ExtraDetails != nil {
		addClause("extra_details", params.ExtraDetails)
	}
	if len(setClauses) == 0 {
		return fmt.Errorf("no valid fields provided for place update")
	}

	args = append(args, placeID)
	query := fmt.Sprintf(`UPDATE places SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), argIdx)
	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update place", slog.Any("error", err))
		return fmt.Errorf("failed to update place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %s not found: %w", placeID, pgx.ErrNoRows)
	}
	return nil
}

// ReorderPlaces applies a batch of order/time updates in one transaction so a
// drag-and-drop either lands fully or not at all. The unique (day_id,
// order_index) constraint is deferred, which lets in-flight swaps pass.
func (r *RepositoryImpl) ReorderPlaces(ctx context.Context, updates []types.PlaceOrderUpdate) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, update := range updates {
		var setClauses []string
		var args []interface{}
		argIdx := 1

		if update.OrderIndex != nil {
			setClauses = append(setClauses, fmt.Sprintf("order_index = $%d", argIdx))
			args = append(args, *update.OrderIndex)
			argIdx++
		}
		if update.StartTime != nil {
			setClauses = append(setClauses, fmt.Sprintf("start_time = $%d", argIdx))
			args = append(args, *update.StartTime)
			argIdx++
		}
		if update.EndTime != nil {
			setClauses = append(setClauses, fmt.Sprintf("end_time = $%d", argIdx))
			args = append(args, *update.EndTime)
			argIdx++
		}
		if len(setClauses) == 0 {
			continue
		}

		args = append(args, update.PlaceID)
		query := fmt.Sprintf(`UPDATE places SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), argIdx)
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to reorder place", slog.Any("error", err), slog.String("place_id", update.PlaceID.String()))
			return fmt.Errorf("failed to reorder place %s: %w", update.PlaceID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("place %s not found: %w", update.PlaceID, pgx.ErrNoRows)
		}
	}

	if len(updates) > 0 {
		touchQuery := `
            UPDATE trips SET last_updated = NOW()
            WHERE id = (
                SELECT d.trip_id FROM places p JOIN days d ON p.day_id = d.id WHERE p.id = $1
            )
        `
		if _, err := tx.Exec(ctx, touchQuery, updates[0].PlaceID); err != nil {
			return fmt.Errorf("failed to touch trip during reorder: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder transaction: %w", err)
	}
	return nil
}

// DeletePlace removes a single place row.
func (r *RepositoryImpl) DeletePlace(ctx context.Context, placeID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM places WHERE id = $1`, placeID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete place", slog.Any("error", err))
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %s not found: %w", placeID, pgx.ErrNoRows)
	}
	return nil
}

// GetPlaceExternalID returns the stored directory identifier, nil when the
// place never resolved to one.
func (r *RepositoryImpl) GetPlaceExternalID(ctx context.Context, placeID uuid.UUID) (*string, error) {
	var externalID *string
	err := r.pgpool.QueryRow(ctx, `SELECT google_place_id FROM places WHERE id = $1`, placeID).Scan(&externalID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("place %s not found: %w", placeID, err)
		}
		return nil, fmt.Errorf("failed to get place external id: %w", err)
	}
	return externalID, nil
}

func (r *RepositoryImpl) GetPlaceImage(ctx context.Context, placeID uuid.UUID) (*string, error) {
	var image *string
	err := r.pgpool.QueryRow(ctx, `SELECT image FROM places WHERE id = $1`, placeID).Scan(&image)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("place %s not found: %w", placeID, err)
		}
		return nil, fmt.Errorf("failed to get place image: %w", err)
	}
	return image, nil
}

// GetPlaceExtraDetails returns the cached place details payload, nil when no
// details were fetched yet.
func (r *RepositoryImpl) GetPlaceExtraDetails(ctx context.Context, placeID uuid.UUID) (json.RawMessage, error) {
	var details json.RawMessage
	err := r.pgpool.QueryRow(ctx, `SELECT extra_details FROM places WHERE id = $1`, placeID).Scan(&details)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("place %s not found: %w", placeID, err)
		}
		return nil, fmt.Errorf("failed to get place details: %w", err)
	}
	return details, nil
}

// TouchTrip bumps last_updated so recency ordering reflects itinerary activity.
func (r *RepositoryImpl) TouchTrip(ctx context.Context, tripID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx, `UPDATE trips SET last_updated = NOW() WHERE id = $1`, tripID)
	if err != nil {
		return fmt.Errorf("failed to touch trip: %w", err)
	}
	return nil
}

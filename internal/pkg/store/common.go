package store

import (
	"errors"

	"github.com/coverhub/geostaging/internal/pkg/constants"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const (
	tableCities          = "cities"
	tableDistricts       = "districts"
	tableAreas           = "areas"
	tableStagingCities   = "staging_cities"
	tableSnapshotEntries = "snapshot_entries"
	tableOperationLog    = "operation_log"
)

var mapping = map[error]error{pgx.ErrNoRows: constants.ErrDBNotFound}

func wrapErr(err error) error {
	for k, v := range mapping {
		if errors.Is(err, k) {
			return v
		}
	}
	return err
}

// builder returns a squirrel SQL builder with postgres placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/pkg/errors"
	"github.com/mroshb/chunkclaim/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// ClaimSheet is the sheet name written by ExportClaims.
const ClaimSheet = "claims"

var header = []interface{}{"world", "x", "z", "owner", "town"}

type Result struct {
	Imported int
	Skipped  int
}

// ImportClaims reads chunk claims from every sheet of an xlsx workbook and
// saves them through gw. The first row of each sheet is a header. Rows that
// do not parse are skipped and counted.
func ImportClaims(ctx context.Context, path string, gw claims.Gateway) (Result, error) {
	var res Result

	f, err := excelize.OpenFile(path)
	if err != nil {
		return res, errors.Wrap(err, errors.ErrCodeValidationFailed, "failed to open workbook")
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("Failed to read sheet", "sheet", sheet, "error", err)
			continue
		}

		for i, row := range rows {
			if i == 0 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}

			rec, err := parseRow(row)
			if err != nil {
				logger.Warn("Skipping claim row", "sheet", sheet, "row", i+1, "error", err)
				res.Skipped++
				continue
			}
			if err := gw.SaveChunkOwner(ctx, rec.Key, rec.Owner); err != nil {
				return res, err
			}
			res.Imported++
		}
	}

	logger.Info("Claims imported", "path", path, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// parseRow reads world, x, z, owner and an optional town.
func parseRow(row []string) (claims.ChunkRecord, error) {
	var rec claims.ChunkRecord
	if len(row) < 4 {
		return rec, fmt.Errorf("want at least 4 columns, got %d", len(row))
	}

	coords := make([]int, 3)
	for i := range coords {
		n, err := strconv.Atoi(strings.TrimSpace(row[i]))
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", header[i], err)
		}
		coords[i] = n
	}
	rec.Key = claims.ChunkKey{World: coords[0], X: coords[1], Z: coords[2]}

	owner, err := uuid.Parse(strings.TrimSpace(row[3]))
	if err != nil || owner == uuid.Nil {
		return rec, fmt.Errorf("invalid owner %q", row[3])
	}
	rec.Owner.Player = uuid.NullUUID{UUID: owner, Valid: true}

	if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
		town, err := uuid.Parse(strings.TrimSpace(row[4]))
		if err != nil {
			return rec, fmt.Errorf("invalid town %q", row[4])
		}
		rec.Owner.Town = uuid.NullUUID{UUID: town, Valid: true}
	}
	return rec, nil
}

// ExportClaims writes the owned chunks of one world inside the given ranges
// to a new workbook at path, in the layout ImportClaims reads.
func ExportClaims(ctx context.Context, path string, gw claims.Gateway, world int, xRange, zRange claims.Span) (int, error) {
	records, err := gw.QueryChunksInBox(ctx, world, xRange, zRange)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ClaimSheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(ClaimSheet, "A1", &header); err != nil {
		return 0, err
	}

	for i, rec := range records {
		town := ""
		if rec.Owner.Town.Valid {
			town = rec.Owner.Town.UUID.String()
		}
		row := []interface{}{rec.Key.World, rec.Key.X, rec.Key.Z, rec.Owner.Player.UUID.String(), town}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(ClaimSheet, cell, &row); err != nil {
			return 0, err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to save workbook")
	}
	return len(records), nil
}

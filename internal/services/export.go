package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tablehop/apiserver/types"
)

const (
	exportRestaurantsFile  = "restaurants.json"
	exportReservationsFile = "reservations.json"
	exportKeyLayout        = "20060102T150405Z"
	exportContentType      = "application/gzip"
)

// ObjectWriter uploads objects. *storage.Storage satisfies it.
type ObjectWriter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ExportService writes catalog and reservation snapshots to object storage.
type ExportService struct {
	restaurants  RestaurantRepository
	reservations ReservationRepository
	objects      ObjectWriter
	now          func() time.Time
}

func NewExportService(restaurants RestaurantRepository, reservations ReservationRepository, objects ObjectWriter) *ExportService {
	return &ExportService{
		restaurants:  restaurants,
		reservations: reservations,
		objects:      objects,
		now:          time.Now,
	}
}

// Export snapshots both tables into a tar.gz archive under exports/.
func (s *ExportService) Export(ctx context.Context) (types.ExportBundle, error) {
	restaurants, err := s.restaurants.List(ctx)
	if err != nil {
		return types.ExportBundle{}, fmt.Errorf("list restaurants: %w", err)
	}
	reservations, err := s.reservations.List(ctx)
	if err != nil {
		return types.ExportBundle{}, fmt.Errorf("list reservations: %w", err)
	}

	now := s.now().UTC()
	data, err := buildExportArchive(now, map[string]any{
		exportRestaurantsFile:  restaurants,
		exportReservationsFile: reservations,
	})
	if err != nil {
		return types.ExportBundle{}, err
	}

	hash := sha256.Sum256(data)
	bundle := types.ExportBundle{
		ObjectKey:    fmt.Sprintf("exports/%s.tar.gz", now.Format(exportKeyLayout)),
		SHA256:       hex.EncodeToString(hash[:]),
		Size:         int64(len(data)),
		Restaurants:  len(restaurants),
		Reservations: len(reservations),
		CreatedAt:    now,
	}

	if err := s.objects.Put(ctx, bundle.ObjectKey, bytes.NewReader(data), bundle.Size, exportContentType); err != nil {
		return types.ExportBundle{}, fmt.Errorf("upload export: %w", err)
	}
	return bundle, nil
}

func buildExportArchive(modTime time.Time, files map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	// Fixed order keeps archives for identical data byte-identical.
	for _, name := range []string{exportRestaurantsFile, exportReservationsFile} {
		value, ok := files[name]
		if !ok {
			continue
		}
		content, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		header := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := tw.Write(content); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package dbsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"photocat/pkg/dto"
)

const folderColumns = `id, path, name, parent_id, file_count, subfolder_count, last_synced_at, last_visited_at`

func scanFolder(row interface{ Scan(...any) error }) (dto.Folder, error) {
	var f dto.Folder
	var parentID sql.NullInt64
	var lastSynced, lastVisited sql.NullTime
	err := row.Scan(&f.ID, &f.Path, &f.Name, &parentID, &f.FileCount, &f.SubfolderCount, &lastSynced, &lastVisited)
	if err != nil {
		return f, err
	}
	f.ParentID = int64Ptr(parentID)
	f.LastSyncedAt = timePtr(lastSynced)
	f.LastVisitedAt = timePtr(lastVisited)
	return f, nil
}

// GetFolderByPath returns the folder with the given normalized path.
func (s *Service) GetFolderByPath(ctx context.Context, path string) (dto.Folder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE path = $1`, path)
	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrNotFound
	}
	if err != nil {
		return f, fmt.Errorf("failed to get folder by path: %w", err)
	}
	return f, nil
}

// GetFoldersByPaths returns the folders whose paths are in the given set,
// keyed by path. Missing paths are simply absent from the result; the caller
// decides what to create.
func (s *Service) GetFoldersByPaths(ctx context.Context, paths []string) (map[string]dto.Folder, error) {
	result := make(map[string]dto.Folder, len(paths))
	if len(paths) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE path = ANY($1)`, pq.Array(paths))
	if err != nil {
		return nil, fmt.Errorf("failed to list folders by paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		result[f.Path] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}
	return result, nil
}

// CreateFolder inserts a folder, returning the existing row unchanged if the
// path is already present. Folders are created lazily by scans and never
// deleted by the engine.
func (s *Service) CreateFolder(ctx context.Context, path, name string, parentID *int64) (dto.Folder, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO folders (path, name, parent_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET name = EXCLUDED.name
		RETURNING `+folderColumns,
		path, name, nullInt64(parentID))
	f, err := scanFolder(row)
	if err != nil {
		return f, fmt.Errorf("failed to create folder %q: %w", path, err)
	}
	return f, nil
}

// RefreshFolderStats recomputes file and subfolder counts for the given
// folders in one statement and stamps their last-synced time.
func (s *Service) RefreshFolderStats(ctx context.Context, folderIDs []int64, syncedAt time.Time) error {
	if len(folderIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE folders f SET
			file_count = (SELECT count(*) FROM photos p WHERE p.folder_id = f.id),
			subfolder_count = (SELECT count(*) FROM folders c WHERE c.parent_id = f.id),
			last_synced_at = $2
		WHERE f.id = ANY($1)`,
		pq.Array(folderIDs), syncedAt)
	if err != nil {
		return fmt.Errorf("failed to refresh folder stats: %w", err)
	}
	return nil
}

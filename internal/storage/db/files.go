package db

import (
	"fmt"
)

// ModFile is the checksum of one file a mod placed in the install tree
type ModFile struct {
	Mod          string
	RelativePath string
	Checksum     string
	Unique       bool // No original existed before activation
}

// SaveModFiles replaces every file record of mod with files
func (d *DB) SaveModFiles(installID, mod string, files []ModFile) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mod_files WHERE install_id = ? AND mod_name = ?`, installID, mod); err != nil {
		return fmt.Errorf("clearing mod files: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO mod_files (install_id, mod_name, relative_path, checksum, unique_file)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(installID, mod, f.RelativePath, f.Checksum, f.Unique); err != nil {
			return fmt.Errorf("saving mod file %s: %w", f.RelativePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mod files: %w", err)
	}
	return nil
}

// DeleteModFiles removes all file records of mod
func (d *DB) DeleteModFiles(installID, mod string) error {
	_, err := d.Exec(`DELETE FROM mod_files WHERE install_id = ? AND mod_name = ?`, installID, mod)
	if err != nil {
		return fmt.Errorf("deleting mod files: %w", err)
	}
	return nil
}

// GetModFiles returns the file records of mod ordered by path
func (d *DB) GetModFiles(installID, mod string) ([]ModFile, error) {
	return d.queryModFiles(`
		SELECT mod_name, relative_path, checksum, unique_file FROM mod_files
		WHERE install_id = ? AND mod_name = ?
		ORDER BY relative_path
	`, installID, mod)
}

// GetInstallFiles returns every file record of an install ordered by path
func (d *DB) GetInstallFiles(installID string) ([]ModFile, error) {
	return d.queryModFiles(`
		SELECT mod_name, relative_path, checksum, unique_file FROM mod_files
		WHERE install_id = ?
		ORDER BY relative_path, mod_name
	`, installID)
}

func (d *DB) queryModFiles(query string, args ...interface{}) ([]ModFile, error) {
	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mod files: %w", err)
	}
	defer rows.Close()

	var files []ModFile
	for rows.Next() {
		var f ModFile
		if err := rows.Scan(&f.Mod, &f.RelativePath, &f.Checksum, &f.Unique); err != nil {
			return nil, fmt.Errorf("scanning mod file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

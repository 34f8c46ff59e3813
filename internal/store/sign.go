package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Sign is a recorded hand pose with the label it stands for.
type Sign struct {
	ID        string
	Label     string
	Landmarks []float64 // x,y,z per point
	CreatedAt time.Time
}

// SignRepository provides CRUD operations for sign templates.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

// Create inserts a sign and its landmarks in a single transaction.
func (r *SignRepository) Create(sg *Sign) error {
	if len(sg.Landmarks)%3 != 0 {
		return fmt.Errorf("landmarks must be x,y,z triples, got %d values", len(sg.Landmarks))
	}
	sg.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO signs (id, label, created_at) VALUES (?, ?, ?)`,
		sg.ID, sg.Label, sg.CreatedAt,
	); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO sign_landmarks (sign_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < len(sg.Landmarks); i += 3 {
		v := sg.Landmarks[i : i+3]
		if _, err := stmt.Exec(sg.ID, i/3, v[0], v[1], v[2]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a sign and its landmarks by ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	sg := &Sign{}
	err := r.db.QueryRow(
		`SELECT id, label, created_at FROM signs WHERE id = ?`,
		id,
	).Scan(&sg.ID, &sg.Label, &sg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	byID, err := r.landmarks(`WHERE sign_id = ?`, id)
	if err != nil {
		return nil, err
	}
	sg.Landmarks = byID[id]
	return sg, nil
}

// List retrieves every sign, oldest first, with its landmarks.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT id, label, created_at FROM signs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sg := &Sign{}
		if err := rows.Scan(&sg.ID, &sg.Label, &sg.CreatedAt); err != nil {
			return nil, err
		}
		signs = append(signs, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID, err := r.landmarks("")
	if err != nil {
		return nil, err
	}
	for _, sg := range signs {
		sg.Landmarks = byID[sg.ID]
	}
	return signs, nil
}

// Labels returns the distinct labels in alphabetical order.
func (r *SignRepository) Labels() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT label FROM signs ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// Delete removes a sign and its landmarks by ID.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *SignRepository) landmarks(where string, args ...any) (map[string][]float64, error) {
	rows, err := r.db.Query(
		`SELECT sign_id, x, y, z FROM sign_landmarks `+where+` ORDER BY sign_id, landmark_index`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var id string
		var x, y, z float64
		if err := rows.Scan(&id, &x, &y, &z); err != nil {
			return nil, err
		}
		out[id] = append(out[id], x, y, z)
	}
	return out, rows.Err()
}

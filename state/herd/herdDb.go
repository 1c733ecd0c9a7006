package herd

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/library"
)

var ErrNotFound = errors.New("member not found")

// Records is the single-table store the herd lives in. The engine never
// manages schema or transactions beyond this surface.
type Records interface {
	FindByKey(pubkey library.Account) (*Member, error)
	Upsert(Member) error
	DeleteAll() error
	Count() (int, error)
	All() ([]Member, error)
}

// Db is the sqlite-backed Records implementation.
type Db struct {
	db    *sql.DB
	mutex *deadlock.Mutex
}

// OpenDb opens (and if needed creates) the member table at path.
func OpenDb(path string) (*Db, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Db{db: db, mutex: &deadlock.Mutex{}}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Db) init() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS cyber_herd (
		pubkey TEXT PRIMARY KEY,
		display_name TEXT,
		event_id TEXT,
		note TEXT,
		kinds TEXT,
		nprofile TEXT,
		lud16 TEXT,
		notified TEXT,
		payouts REAL,
		amount INTEGER,
		picture TEXT
	)`)
	return err
}

func (d *Db) Close() error {
	return d.db.Close()
}

func (d *Db) FindByKey(pubkey library.Account) (*Member, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	row := d.db.QueryRow(`SELECT pubkey, display_name, event_id, note, kinds,
		nprofile, lud16, notified, payouts, amount, picture
		FROM cyber_herd WHERE pubkey = ?`, pubkey)
	var m Member
	err := row.Scan(&m.Pubkey, &m.DisplayName, &m.EventID, &m.Note, &m.Kinds,
		&m.Nprofile, &m.Lud16, (*string)(&m.Notified), &m.Payouts, &m.Amount, &m.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (d *Db) Upsert(m Member) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	_, err := d.db.Exec(`INSERT INTO cyber_herd
		(pubkey, display_name, event_id, note, kinds, nprofile, lud16, notified, payouts, amount, picture)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pubkey) DO UPDATE SET
			display_name = excluded.display_name,
			event_id = excluded.event_id,
			note = excluded.note,
			kinds = excluded.kinds,
			nprofile = excluded.nprofile,
			lud16 = excluded.lud16,
			notified = excluded.notified,
			payouts = excluded.payouts,
			amount = excluded.amount,
			picture = excluded.picture`,
		m.Pubkey, m.DisplayName, m.EventID, m.Note, m.Kinds, m.Nprofile,
		m.Lud16, string(m.Notified), m.Payouts, m.Amount, m.Picture)
	return err
}

func (d *Db) DeleteAll() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	_, err := d.db.Exec(`DELETE FROM cyber_herd`)
	return err
}

func (d *Db) Count() (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM cyber_herd`).Scan(&count)
	return count, err
}

func (d *Db) All() ([]Member, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	rows, err := d.db.Query(`SELECT pubkey, display_name, event_id, note, kinds,
		nprofile, lud16, notified, payouts, amount, picture FROM cyber_herd`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Pubkey, &m.DisplayName, &m.EventID, &m.Note, &m.Kinds,
			&m.Nprofile, &m.Lud16, (*string)(&m.Notified), &m.Payouts, &m.Amount, &m.Picture); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

package domain

// WatchedUsername records that a watcher wants to know when a username
// becomes free. The pair is not unique: several watchers may register the
// same username, and the monitor dedups by username value only.
type WatchedUsername struct {
	Username string `json:"username" validate:"required"`
	Watcher  string `json:"watcher" validate:"required"`
}

// CheckLogEntry is the immutable outcome of one availability check.
// Date is epoch milliseconds. Error is nil unless the check (or its
// notification) failed for this username.
type CheckLogEntry struct {
	Username string  `json:"username" validate:"required"`
	Date     int64   `json:"date" validate:"required"`
	Result   bool    `json:"result"`
	Error    *string `json:"error"`
}

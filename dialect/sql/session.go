package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// settingName matches the names accepted by SET, including dotted custom
// settings such as "application.tenant".
var settingName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type settingsKey struct{}

type setting struct{ name, value string }

// stmt returns the SET statement of s. Local settings end with the
// transaction they were set in.
func (s setting) stmt(local bool) string {
	if local {
		return fmt.Sprintf("SET LOCAL %s = %s", s.name, pq.QuoteLiteral(s.value))
	}
	return fmt.Sprintf("SET %s = %s", s.name, pq.QuoteLiteral(s.value))
}

// WithSetting returns a context carrying a session setting. Statements run
// outside a transaction set it on a dedicated connection and reset it before
// the connection returns to the pool; transactions begun with the context set
// it with SET LOCAL. Setting a name again replaces its value.
func WithSetting(ctx context.Context, name, value string) context.Context {
	prev := settingsFrom(ctx)
	s := make([]setting, 0, len(prev)+1)
	for _, p := range prev {
		if p.name != name {
			s = append(s, p)
		}
	}
	return context.WithValue(ctx, settingsKey{}, append(s, setting{name, value}))
}

// SettingFromContext returns the value of the named setting in ctx.
func SettingFromContext(ctx context.Context, name string) (string, bool) {
	for _, s := range settingsFrom(ctx) {
		if s.name == name {
			return s.value, true
		}
	}
	return "", false
}

// WithTimeZone sets the session time zone. A nil location leaves ctx as is.
func WithTimeZone(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return WithSetting(ctx, "timezone", loc.String())
}

// WithStatementTimeout sets the session statement timeout, rounded down to
// milliseconds. Non-positive durations leave ctx as is.
func WithStatementTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return WithSetting(ctx, "statement_timeout", strconv.FormatInt(d.Milliseconds(), 10)+"ms")
}

func settingsFrom(ctx context.Context) []setting {
	s, _ := ctx.Value(settingsKey{}).([]setting)
	return s
}

// validSettings returns the settings of ctx, failing on names SET would not accept.
func validSettings(ctx context.Context) ([]setting, error) {
	s := settingsFrom(ctx)
	for _, v := range s {
		if !settingName.MatchString(v.name) {
			return nil, fmt.Errorf("invalid setting name %q", v.name)
		}
	}
	return s, nil
}

// setLocal applies the settings of ctx to a transaction.
func setLocal(ctx context.Context, tx *sql.Tx) error {
	settings, err := validSettings(ctx)
	if err != nil {
		return err
	}
	for _, s := range settings {
		if _, err := tx.ExecContext(ctx, s.stmt(true)); err != nil {
			return err
		}
	}
	return nil
}

// session returns the ExecQuerier running statements with the settings of
// ctx. Outside a transaction it is a dedicated connection, released by the
// returned function once the settings are reset.
func (c Conn) session(ctx context.Context) (ExecQuerier, func() error, error) {
	db, ok := c.ExecQuerier.(*sql.DB)
	if !ok {
		// Transactions carry their settings from BeginTx.
		return c.ExecQuerier, nil, nil
	}
	settings, err := validSettings(ctx)
	if err != nil || len(settings) == 0 {
		return c.ExecQuerier, nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range settings {
		if _, err := conn.ExecContext(ctx, s.stmt(false)); err != nil {
			return nil, nil, discard(conn, err)
		}
	}
	release := func() error {
		// The caller's context may be done by now.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, s := range settings {
			if _, err := conn.ExecContext(ctx, "RESET "+s.name); err != nil {
				return discard(conn, err)
			}
		}
		return conn.Close()
	}
	return conn, release, nil
}

// discard closes conn without returning it to the pool, where it would keep
// the settings applied so far.
func discard(conn *sql.Conn, err error) error {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	return err
}

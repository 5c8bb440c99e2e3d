package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"import busy", ErrImportBusy, "IMP001"},
		{"wrapped import busy", fmt.Errorf("start run: %w", ErrImportBusy), "IMP001"},
		{"dependency failed", ErrDependencyFailed, "IMP004"},
		{"no files", ErrNoFiles, "FILE004"},
		{"invalid mapping", fmt.Errorf("%w: table service", ErrInvalidMapping), "IMP005"},
		{"file too large", fmt.Errorf("read prices.csv: %w", source.ErrTooLarge), "FILE001"},
		{"empty file", source.ErrEmpty, "FILE005"},
		{"unsupported format", source.ErrUnsupportedFormat, "FILE002"},
		{"no header", source.ErrNoHeader, "FILE003"},
		{"unknown table", fmt.Errorf("%w: %q", store.ErrUnknownTable, "x"), "TBL001"},
		{"unrecognised layout", ErrUnrecognisedLayout, "FILE007"},
		{"validation", &ValidationError{Problems: []string{"title must not be empty"}}, "REC001"},
		{"record not found", fmt.Errorf("book: client: %w", store.ErrNotFound), "REC002"},
		{"service in use", fmt.Errorf("delete service 3: %w", ErrServiceInUse), "REC003"},
		{"request body too large", errors.New("http: request body too large"), "FILE001"},
		{"cancelled", context.Canceled, "IMP002"},
		{"deadline", fmt.Errorf("write client: %w", context.DeadlineExceeded), "IMP003"},
		{"foreign key", errors.New(`ERROR: insert violates foreign key constraint "client_service_client_id_fkey"`), "DB001"},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), "DB001"},
		{"check constraint", errors.New("CHECK constraint failed: cost >= 0"), "DB002"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB003"},
		{"sqlite locked", errors.New("database is locked (5) (SQLITE_BUSY)"), "DB004"},
		{"driver timeout", errors.New("i/o timeout"), "DB005"},
		{"bad csv quoting", errors.New(`parse error on line 3, column 7: bare " in non-quoted-field`), "FILE006"},
		{"unknown error uses default", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) = %+v, want message and action", tt.err, got)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrImportBusy)
	want := "Another import is still running (Code: IMP001). Wait for it to finish and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", source.ErrEmpty, true},
		{"pattern", errors.New("connection reset by peer"), true},
		{"unknown", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

package core

import (
	"testing"

	"github.com/JonMunkholm/salon/internal/model"
)

// ----------------------------------------------------------------------------
// NormalizeDuration Tests
// ----------------------------------------------------------------------------

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{"minutes with dot", "45 мин.", 2700, true},
		{"seconds with dot", "1200 сек.", 1200, true},
		{"english minutes", "90 min", 5400, true},
		{"bare number is seconds", "3600", 3600, true},
		{"hours and minutes summed", "1 час 30 мин", 5400, true},
		{"fractional hours", "1,5 ч", 5400, true},
		{"no space before unit", "30мин", 1800, true},
		{"padded with nbsp", "\u00a045 мин\u00a0", 2700, true},
		{"space grouped thousands", "1 200 сек.", 1200, true},
		{"nbsp grouped thousands", "1\u00a0200 сек.", 1200, true},
		{"grouped without dot", "2 700 сек", 2700, true},
		{"garbage", "garbage", 0, false},
		{"empty", "", 0, false},
		{"unknown unit", "2 года", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDuration(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeDuration(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeCost Tests
// ----------------------------------------------------------------------------

func TestNormalizeCost(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"integer", "1500", 1500, true},
		{"spaces and currency sign", "1 500 ₽", 1500, true},
		{"comma decimal", "1200,50", 1200.5, true},
		{"dot decimal", "99.90", 99.9, true},
		{"dot thousands comma decimal", "1.234,56", 1234.56, true},
		{"comma thousands dot decimal", "1,234.56", 1234.56, true},
		{"repeated comma groups", "1,234,567", 1234567, true},
		{"repeated dot groups", "1.234.567", 1234567, true},
		{"excel text prefix", `="2500"`, 2500, true},
		{"no digits", "free", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCost(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeCost(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeDiscount Tests
// ----------------------------------------------------------------------------

func TestNormalizeDiscount(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"percent", "25%", 0.75, true},
		{"bare number", "25", 0.75, true},
		{"comma fraction", "12,5%", 0.875, true},
		{"embedded in text", "скидка 10%", 0.9, true},
		{"full discount", "100%", 0, true},
		{"russian no", "нет", 1, true},
		{"russian no capitalised", "Нет", 1, true},
		{"empty", "", 1, true},
		{"zero", "0", 1, true},
		{"dash", "-", 1, true},
		{"over one hundred clamps", "150%", 0, false},
		{"unreadable", "abc", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDiscount(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeDiscount(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeGender Tests
// ----------------------------------------------------------------------------

func TestNormalizeGender(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"Женский", model.GenderFemale, true},
		{"жен.", model.GenderFemale, true},
		{"female", model.GenderFemale, true},
		{"Woman", model.GenderFemale, true},
		{"Мужской", model.GenderMale, true},
		{"male", model.GenderMale, true},
		{"м", model.GenderMale, true},
		{"ж", model.GenderFemale, true},
		{"", model.GenderUnspecified, true},
		{"unknown", model.GenderUnspecified, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeGender(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeGender(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeImagePath Tests
// ----------------------------------------------------------------------------

func TestNormalizeImagePath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		dir    string
		want   string
		wantOK bool
	}{
		{"windows path", `C:\Photos\Услуги\hair.jpg`, "", "assets/service_photo/hair.jpg", true},
		{"unix path", "/home/admin/nails.png", "", "assets/service_photo/nails.png", true},
		{"bare file name", "spa.jpg", "media", "media/spa.jpg", true},
		{"windows dir option", "spa.jpg", `media\photos`, "media/photos/spa.jpg", true},
		{"empty stays empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeImagePath(tt.input, tt.dir)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeImagePath(%q, %q) = %q, %v; want %q, %v", tt.input, tt.dir, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeDate Tests
// ----------------------------------------------------------------------------

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"iso", "1990-03-15", "1990-03-15", true},
		{"dotted", "15.03.1990", "1990-03-15", true},
		{"dotted short", "5.3.1990", "1990-03-05", true},
		{"two digit year", "15.03.90", "1990-03-15", true},
		{"with time", "2023-11-02 00:00:00", "2023-11-02", true},
		{"empty", "", "", true},
		{"garbage", "вчера", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeDate(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
	}{
		{"2024-05-01 10:00:00", true},
		{"2024-05-01 10:00", true},
		{"2024-05-01T10:00:00", true},
		{"01.05.2024 10:00", true},
		{"2024-05-01", true},
		{"", false},
		{"завтра", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if _, ok := ParseStartTime(tt.input); ok != tt.wantOK {
				t.Errorf("ParseStartTime(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple string unchanged", "hello", "hello"},
		{"empty string", "", ""},
		{"surrounded by whitespace", "  hello  ", "hello"},
		{"non-breaking spaces", "\u00a0Стоимость\u00a0", "Стоимость"},
		{"Excel formula with quotes", `="hello"`, "hello"},
		{"Excel formula number as text", `="12345"`, "12345"},
		{"bare equals sign", "=SUM(A1)", "SUM(A1)"},
		{"double quotes removed", `"hello"`, "hello"},
		{"single quotes removed", "'hello'", "hello"},
		{"leading single quote (Excel text prefix)", "'12345", "12345"},
		{"whitespace and quotes", `  "hello"  `, "hello"},
		{"only quotes", `""`, ""},
		{"equals with quoted number", `="0"`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

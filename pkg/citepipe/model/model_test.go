package model

import "testing"

func TestSortPubDates(t *testing.T) {
	dates := []PubDate{
		{Year: 2005, Month: 1},
		{Year: UnknownYear, Month: UnknownMonth},
		{Year: 2004, Month: 12},
		{Year: 2004, Month: 3},
	}
	SortPubDates(dates)
	if dates[0].Year != 2004 || dates[0].Month != 3 {
		t.Errorf("earliest = %+v", dates[0])
	}
	if dates[3].Year != UnknownYear {
		t.Errorf("sentinel should sort last, got %+v", dates[3])
	}
}

func TestTypeSet(t *testing.T) {
	s := NewTypeSet("research-article", "letter")
	if !s.Contains("letter") || s.Contains("editorial") {
		t.Errorf("set membership wrong: %v", s)
	}
	if !AcceptedTypes().Contains("case-report") {
		t.Error("default set missing case-report")
	}
}

func TestNewDocumentSentinels(t *testing.T) {
	d := NewDocument("a.nxml")
	if d.Year != UnknownYear || d.Month != UnknownMonth || d.File != "a.nxml" {
		t.Errorf("document = %+v", d)
	}
}

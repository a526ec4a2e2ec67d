package catalog

import "testing"

func TestColumnKindRoundTrip(t *testing.T) {
	kinds := []ColumnKind{KindRegular, KindPartitionKey, KindClustering, KindStatic}
	for _, k := range kinds {
		if got := ParseColumnKind(k.String()); got != k {
			t.Errorf("ParseColumnKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
}

func TestParseColumnKindUnknownIsRegular(t *testing.T) {
	if got := ParseColumnKind("mystery"); got != KindRegular {
		t.Errorf("ParseColumnKind(mystery) = %v", got)
	}
}

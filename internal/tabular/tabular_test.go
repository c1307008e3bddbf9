package tabular

import (
	"strings"
	"testing"
)

const sampleTable = "name | age | salary\n" +
	"[PERSON_1] | 34 | 65000\n" +
	"[PERSON_2] | 61 | 120000\n" +
	"[PERSON_3] | 22 | 41000\n"

func TestIsTabularDetectsPipeDelimited(t *testing.T) {
	if !IsTabular(sampleTable) {
		t.Fatalf("expected sample table to be detected as tabular")
	}
}

func TestIsTabularRejectsProse(t *testing.T) {
	if IsTabular("Just a normal paragraph with no pipes at all in it.") {
		t.Fatalf("expected prose to not be tabular")
	}
}

func TestParseProducesHeaderAndRows(t *testing.T) {
	tbl := Parse(sampleTable)
	if tbl == nil {
		t.Fatalf("expected table to parse")
	}
	if len(tbl.Header) != 3 || tbl.Header[0] != "name" {
		t.Fatalf("unexpected header: %+v", tbl.Header)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 data rows, got %d", len(tbl.Rows))
	}
}

func TestTryQueryPointLookup(t *testing.T) {
	res, ok := TryQuery("tell me about [PERSON_1]", []string{sampleTable})
	if !ok || !res.Success {
		t.Fatalf("expected point lookup success, got %+v ok=%v", res, ok)
	}
	if !strings.Contains(res.Context, "65000") {
		t.Fatalf("expected salary in result: %s", res.Context)
	}
}

func TestTryQueryMultiLookup(t *testing.T) {
	res, ok := TryQuery("show [PERSON_1] and [PERSON_2] data", []string{sampleTable})
	if !ok {
		t.Fatalf("expected multi lookup to trigger")
	}
	if res.QueryType != "multi_lookup" {
		t.Fatalf("unexpected query type: %s", res.QueryType)
	}
}

func TestTryQueryCountOverThreshold(t *testing.T) {
	res, ok := TryQuery("how many people have salary over 50000", []string{sampleTable})
	if !ok || !res.Success {
		t.Fatalf("expected count success, got ok=%v res=%+v", ok, res)
	}
	if !strings.Contains(res.Context, "2 out of 3") {
		t.Fatalf("expected 2 out of 3 rows matching threshold, got: %s", res.Context)
	}
}

func TestTryQueryAverage(t *testing.T) {
	res, ok := TryQuery("what is the average age", []string{sampleTable})
	if !ok || !res.Success {
		t.Fatalf("expected average success")
	}
	if !strings.Contains(res.Context, "Average age") {
		t.Fatalf("expected average label in result: %s", res.Context)
	}
}

func TestTryQueryExtremaMax(t *testing.T) {
	res, ok := TryQuery("who has the highest salary", []string{sampleTable})
	if !ok || !res.Success {
		t.Fatalf("expected extrema success")
	}
	if !strings.Contains(res.Context, "120000") {
		t.Fatalf("expected top salary in result: %s", res.Context)
	}
}

func TestTryQueryFilterUnder(t *testing.T) {
	res, ok := TryQuery("list all people with age under 30", []string{sampleTable})
	if !ok || !res.Success {
		t.Fatalf("expected filter success")
	}
	if !strings.Contains(res.Context, "PERSON_3") {
		t.Fatalf("expected PERSON_3 in filtered result: %s", res.Context)
	}
}

func TestHandleReverseLookup(t *testing.T) {
	// TryQuery routes any query holding a pseudonym to a lookup handler
	// first, so the reverse-lookup handler is exercised directly.
	res := handleReverseLookup("what row contains [PERSON_2]", []*Table{Parse(sampleTable)})
	if res.QueryType != "reverse_lookup" || !res.Success {
		t.Fatalf("expected reverse lookup success, got %+v", res)
	}
	if !strings.Contains(res.Context, "61") {
		t.Fatalf("expected age 61 in reverse lookup: %s", res.Context)
	}
}

func TestTryQueryNoTabularData(t *testing.T) {
	_, ok := TryQuery("how many rows are there", []string{"just some prose, nothing tabular here"})
	if ok {
		t.Fatalf("expected no tabular match for non-tabular documents")
	}
}

package formula

import "testing"

func TestBuildNestedFunction(t *testing.T) {
	t.Parallel()

	e := Fn("IF",
		Bin("<", Fn("COUNT", Range("00_CLEANED", "A2", "A11")), Int(2)),
		Empty(),
		Fn("STDEV.S", Range("00_CLEANED", "A2", "A11")))
	want := `=IF(COUNT('00_CLEANED'!A2:A11)<2,"",STDEV.S('00_CLEANED'!A2:A11))`
	if got := Build(e); got != want {
		t.Fatalf("Build\nwant=%s\ngot =%s", want, got)
	}
}

func TestStrEscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := Render(Str(`he said "hi"`)); got != `"he said ""hi"""` {
		t.Fatalf("Str escape got=%s", got)
	}
}

func TestBoolLiteral(t *testing.T) {
	t.Parallel()

	if got := Render(Bool(true)); got != "TRUE" {
		t.Fatalf("Bool(true) got=%s", got)
	}
	if got := Render(Bool(false)); got != "FALSE" {
		t.Fatalf("Bool(false) got=%s", got)
	}
}

func TestCriterionTypes(t *testing.T) {
	t.Parallel()

	if got := Render(Criterion(3.5)); got != "3.5" {
		t.Fatalf("float criterion got=%s", got)
	}
	if got := Render(Criterion(7)); got != "7" {
		t.Fatalf("int criterion got=%s", got)
	}
	if got := Render(Criterion(true)); got != "TRUE" {
		t.Fatalf("bool criterion got=%s", got)
	}
	if got := Render(Criterion("北京")); got != `"北京"` {
		t.Fatalf("string criterion got=%s", got)
	}
}

func TestMatchCriterionEscapesWildcards(t *testing.T) {
	t.Parallel()

	if got := Render(MatchCriterion("a*b?c~d")); got != `"a~*b~?c~~d"` {
		t.Fatalf("wildcard escape got=%s", got)
	}
	// 非字符串条件不做通配符转义
	if got := Render(MatchCriterion(5)); got != "5" {
		t.Fatalf("numeric match criterion got=%s", got)
	}
}

func TestQuoteSheetWithApostrophe(t *testing.T) {
	t.Parallel()

	if got := Render(Cell("O'Brien", "B2")); got != "'O''Brien'!B2" {
		t.Fatalf("sheet quoting got=%s", got)
	}
}

func TestFormatNumberDeterministic(t *testing.T) {
	t.Parallel()

	if got := FormatNumber(4); got != "4" {
		t.Fatalf("integer render got=%s", got)
	}
	if got := FormatNumber(0.25); got != "0.25" {
		t.Fatalf("fraction render got=%s", got)
	}
	if got := FormatNumber(-3); got != "-3" {
		t.Fatalf("negative integer render got=%s", got)
	}
}

func TestCellNamePanicsOnInvalid(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid coordinates")
		}
	}()
	CellName(0, 1)
}

func TestColName(t *testing.T) {
	t.Parallel()

	if got := ColName(1); got != "A" {
		t.Fatalf("ColName(1) got=%s", got)
	}
	if got := ColName(40); got != "AN" {
		t.Fatalf("ColName(40) got=%s", got)
	}
}

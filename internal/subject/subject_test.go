package subject

import "testing"

func TestValidatePattern(t *testing.T) {
	cases := []struct {
		pattern string
		wantErr bool
	}{
		{"", true},
		{"blocks.>", false},
		{"blocks.*.producer", false},
		{"inputs.coin.*.>", true},
		{"inputs.coin.*.owner>", true},
		{"inputs.coin.*", false},
		{"inputs.coin.1*", true},
	}
	for _, c := range cases {
		err := ValidatePattern(c.pattern)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidatePattern(%q) err=%v, wantErr=%v", c.pattern, err, c.wantErr)
		}
	}
}

func TestInstanceParseFullWildcard(t *testing.T) {
	inst, err := New(IDBlocks, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.Parse(); got != "blocks.>" {
		t.Fatalf("got %q", got)
	}
}

func TestInstanceParsePartial(t *testing.T) {
	inst, err := New(IDBlocks, map[string]string{"block_height": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.Parse(); got != "blocks.42.*" {
		t.Fatalf("got %q", got)
	}
	if inst.IsLivePublishable() {
		t.Fatal("expected not fully concrete")
	}
}

func TestInstanceParseFull(t *testing.T) {
	inst, err := New(IDBlocks, map[string]string{"block_height": "42", "producer": "0xabc"})
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.Parse(); got != "blocks.42.0xabc" {
		t.Fatalf("got %q", got)
	}
	if !inst.IsLivePublishable() {
		t.Fatal("expected fully concrete")
	}
}

func TestInstanceToSQLWhere(t *testing.T) {
	inst, err := New(IDInputsCoin, map[string]string{"block_height": "1", "owner": "0xaa"})
	if err != nil {
		t.Fatal(err)
	}
	clause, args, ok := inst.ToSQLWhere(1)
	if !ok {
		t.Fatal("expected a clause")
	}
	if clause != "block_height = $1 AND owner_id = $2" {
		t.Fatalf("got clause %q", clause)
	}
	if len(args) != 2 || args[0] != "1" || args[1] != "0xaa" {
		t.Fatalf("got args %v", args)
	}
}

func TestInstanceToSQLWhereFullWildcard(t *testing.T) {
	inst, _ := New(IDBlocks, nil)
	if _, _, ok := inst.ToSQLWhere(1); ok {
		t.Fatal("expected no clause for fully wildcarded subject")
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		subj, pattern string
		want          bool
	}{
		{"inputs.coin.1.0xaa.0.0.owner.asset", "inputs.coin.>", true},
		{"inputs.contract.1.0xaa.0.0.c", "inputs.coin.>", false},
		{"blocks.42.producer", "blocks.*.producer", true},
		{"blocks.42.other", "blocks.*.producer", false},
		{"transactions.5.1.txid.success.script", "transactions.5.*.*.*.*", true},
		{"transactions.6.1.txid.success.script", "transactions.5.*.*.*.*", false},
	}
	for _, c := range cases {
		got, err := Matches(c.subj, c.pattern)
		if err != nil {
			t.Fatalf("Matches(%q,%q): %v", c.subj, c.pattern, err)
		}
		if got != c.want {
			t.Errorf("Matches(%q,%q) = %v, want %v", c.subj, c.pattern, got, c.want)
		}
	}
}

func TestValidateAgainstDefinitionSegmentCount(t *testing.T) {
	def, _ := Lookup(IDBlocks)
	if err := def.ValidateAgainstDefinition("blocks.1.2.3"); err == nil {
		t.Fatal("expected error: too many segments for blocks entity")
	}
	if err := def.ValidateAgainstDefinition("blocks.1.producer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAllIDsRegistered(t *testing.T) {
	ids := AllIDs()
	if len(ids) < 25 {
		t.Fatalf("expected at least 25 registered entities, got %d", len(ids))
	}
}

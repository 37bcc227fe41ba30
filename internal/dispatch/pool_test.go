package dispatch

import "testing"

func TestParsePool_DropsMalformed(t *testing.T) {
	p := ParsePool("a/b|tok12345,bad-entry,c/d|tok67890")
	if p.Size() != 2 {
		t.Fatalf("size = %d, want 2", p.Size())
	}
	accts := p.Accounts()
	if accts[0] != (Account{Repo: "a/b", Token: "tok12345"}) {
		t.Errorf("first = %+v", accts[0])
	}
	if accts[1] != (Account{Repo: "c/d", Token: "tok67890"}) {
		t.Errorf("second = %+v", accts[1])
	}
}

func TestParsePool_Delimiters(t *testing.T) {
	p := ParsePool(" a/b|token-one \n c/d|token-two ,, \n")
	if p.Size() != 2 {
		t.Fatalf("size = %d, want 2", p.Size())
	}
}

func TestParsePool_ExtraPipeFieldsDiscarded(t *testing.T) {
	p := ParsePool("a/b|token-one|garbage|more")
	accts := p.Accounts()
	if len(accts) != 1 || accts[0].Token != "token-one" {
		t.Fatalf("accounts = %+v", accts)
	}
}

func TestParsePool_Validation(t *testing.T) {
	cases := []string{
		"noslash|token-one", // repo missing slash
		"a/b|shrt",          // credential too short
		"|token-one",        // empty repo
		"a/b|",              // empty credential
		"/b|token-one",      // leading slash, empty owner
	}
	for _, c := range cases {
		if p := ParsePool(c); p.Size() != 0 {
			t.Errorf("ParsePool(%q) kept %d entries, want 0", c, p.Size())
		}
	}
}

func TestPool_CyclicOrder(t *testing.T) {
	p := ParsePool("a/b|token-one,c/d|token-two,e/f|token-three")
	n := p.Size()
	if n != 3 {
		t.Fatalf("size = %d", n)
	}

	seen := make(map[string]int)
	var order []string
	for i := 0; i < 2*n; i++ {
		acct, pos, ok := p.Next()
		if !ok {
			t.Fatalf("Next() empty at call %d", i)
		}
		if want := i%n + 1; pos != want {
			t.Errorf("call %d: position = %d, want %d", i, pos, want)
		}
		seen[acct.Repo]++
		order = append(order, acct.Repo)
	}
	for repo, count := range seen {
		if count != 2 {
			t.Errorf("%s yielded %d times, want exactly 2", repo, count)
		}
	}
	// The second cycle repeats the first in the same order.
	for i := 0; i < n; i++ {
		if order[i] != order[i+n] {
			t.Errorf("cycle order diverged at %d: %s vs %s", i, order[i], order[i+n])
		}
	}
}

func TestPool_Empty(t *testing.T) {
	p := ParsePool("")
	if _, _, ok := p.Next(); ok {
		t.Error("empty pool must yield no account")
	}
}

func TestPool_AccountsDoesNotAdvance(t *testing.T) {
	p := ParsePool("a/b|token-one,c/d|token-two")
	_ = p.Accounts()
	_ = p.Accounts()
	acct, pos, _ := p.Next()
	if acct.Repo != "a/b" || pos != 1 {
		t.Errorf("Accounts() advanced the cycle: got %s at %d", acct.Repo, pos)
	}
}

func TestAccount_Masked(t *testing.T) {
	a := Account{Repo: "owner/repo"}
	if a.Masked() != "owner/..." {
		t.Errorf("masked = %q", a.Masked())
	}
	if a.Owner() != "owner" || a.Name() != "repo" {
		t.Errorf("owner=%q name=%q", a.Owner(), a.Name())
	}
}

package validate

import "testing"

func TestValidateFieldAllowsShortValues(t *testing.T) {
	s := Settings{Ratio: 0.4}
	if !validateField("name", "a", s) {
		t.Fatal("expected short field to pass regardless of content")
	}
}

func TestValidateFieldRejectsHighSpecialRatio(t *testing.T) {
	s := Settings{Ratio: 0.2}
	if validateField("comment", "!!!@@@###$$$", s) {
		t.Fatal("expected high special-character ratio to fail")
	}
}

func TestValidateFieldHonorsIgnoreList(t *testing.T) {
	s := Settings{IgnoreNames: []string{"password"}, Ratio: 0.1}
	if !validateField("password", "!!!@@@###$$$", s) {
		t.Fatal("expected ignored field name to bypass the ratio check")
	}
}

func TestHasDangerousContentDetectsHTML(t *testing.T) {
	if !HasDangerousContent("<script>alert(1)</script>") {
		t.Fatal("expected HTML tag to be flagged")
	}
}

func TestHasDangerousContentDetectsScriptLikePayload(t *testing.T) {
	if !HasDangerousContent("var x = eval(something)") {
		t.Fatal("expected script-like payload to be flagged")
	}
}

func TestHasDangerousContentAllowsPlainText(t *testing.T) {
	if HasDangerousContent("just a normal comment about version 1.2") {
		t.Fatal("expected plain text to pass")
	}
}

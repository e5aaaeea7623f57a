package youtube

import "testing"

func TestWhatlangDetector(t *testing.T) {
	d := WhatlangDetector{}

	text := "The committee published its annual report on Tuesday, and the findings " +
		"suggest that most households in the region have seen their energy bills rise " +
		"considerably over the last twelve months."
	if code, ok := d.Detect(text); !ok || code != "en" {
		t.Errorf("Detect(english) = %q, %v, want en, true", code, ok)
	}

	if code, ok := d.Detect(""); ok {
		t.Errorf("Detect(\"\") = %q, true, want not detected", code)
	}
}

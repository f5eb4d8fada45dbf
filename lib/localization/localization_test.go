package localization

import (
	"encoding/json"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/TecharoHQ/numcaptcha"
)

func TestLocalizationService(t *testing.T) {
	service := NewLocalizationService()

	for _, tt := range []struct {
		lang string
		want string
	}{
		{lang: "en", want: "Security code"},
		{lang: "en-GB", want: "Security code"},
		{lang: "fa", want: "کد امنیتی"},
		{lang: "fa-IR,fa;q=0.9", want: "کد امنیتی"},
		{lang: "de", want: "Security code"},
	} {
		t.Run(tt.lang, func(t *testing.T) {
			sl := SimpleLocalizer{Localizer: service.GetLocalizer(tt.lang)}
			if got := sl.T("captcha_label"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplateData(t *testing.T) {
	sl := ForLanguage("en")
	if got := sl.TData("rate_limited", map[string]any{"Seconds": 30}); got != "Too many requests. Try again in 30 seconds." {
		t.Errorf("got %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	if got := ForLanguage("en").T("does_not_exist"); got != "does_not_exist" {
		t.Errorf("missing keys should fall back to the id, got %q", got)
	}
}

func TestGetLocalizer(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Accept-Language", "fa")

	if got := GetLocalizer(r).T("error_title"); got != "خطا" {
		t.Errorf("got %q", got)
	}

	old := numcaptcha.ForcedLanguage
	numcaptcha.ForcedLanguage = "en"
	t.Cleanup(func() { numcaptcha.ForcedLanguage = old })

	if got := GetLocalizer(r).T("error_title"); got != "Error" {
		t.Errorf("forced language ignored, got %q", got)
	}
}

type manifest struct {
	SupportedLanguages []string `json:"supported_languages"`
}

func loadManifest(t *testing.T) manifest {
	t.Helper()

	fin, err := localeFS.Open("locales/manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	defer fin.Close()

	var result manifest
	if err := json.NewDecoder(fin).Decode(&result); err != nil {
		t.Fatal(err)
	}

	return result
}

func loadKeys(t *testing.T, lang string) []string {
	t.Helper()

	fin, err := localeFS.Open("locales/" + lang + ".json")
	if err != nil {
		t.Fatal(err)
	}
	defer fin.Close()

	var translations = map[string]any{}
	if err := json.NewDecoder(fin).Decode(&translations); err != nil {
		t.Fatal(err)
	}

	var keys []string
	for k := range translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func TestComprehensiveTranslations(t *testing.T) {
	want := loadKeys(t, "en")

	for _, lang := range loadManifest(t).SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			got := loadKeys(t, lang)
			have := map[string]bool{}
			for _, k := range got {
				have[k] = true
			}

			for _, key := range want {
				if !have[key] {
					t.Errorf("key %q not defined", key)
				}
			}
		})
	}
}

package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"cropadvisor/models"
)

var languageMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.MustParse("hi"),
	language.MustParse("mr"),
})

// MatchLanguage maps a language code or Accept-Language value to one of
// the supported languages. Anything unrecognised is English.
func MatchLanguage(raw string) models.Language {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.LanguageEnglish
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return models.LanguageEnglish
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return models.LanguageEnglish
	}
	return models.SupportedLanguages[index]
}

// Advisory templates take crop, district and month positionally.
var advisoryTemplates = map[models.Language]map[string]string{
	models.LanguageEnglish: {
		"low_risk":    "%[1]s is highly recommended for %[2]s in %[3]s with optimal conditions. Rainfall is adequate and soil conditions are favorable.",
		"medium_risk": "%[1]s is recommended for %[2]s in %[3]s. Monitor rainfall and ensure proper irrigation. Temperature and humidity are within acceptable range.",
		"high_risk":   "%[1]s can be grown in %[2]s in %[3]s, but requires careful management. Rainfall is limited - ensure supplementary irrigation.",
	},
	models.LanguageHindi: {
		"low_risk":    "%[1]s %[2]s में %[3]s के लिए अत्यधिक अनुशंसित है। वर्षा पर्याप्त है और मिट्टी की स्थिति अनुकूल है।",
		"medium_risk": "%[1]s %[2]s में %[3]s के लिए अनुशंसित है। वर्षा की निगरानी करें और उचित सिंचाई सुनिश्चित करें।",
		"high_risk":   "%[1]s %[2]s में %[3]s में उगाया जा सकता है, लेकिन सावधानीपूर्वक प्रबंधन की आवश्यकता है। वर्षा सीमित है।",
	},
	models.LanguageMarathi: {
		"low_risk":    "%[1]s %[2]s मध्ये %[3]s साठी अत्यंत शिफारस केली जाते. पावसाळ पर्याप्त आहे आणि मातीची स्थिती अनुकूल आहे.",
		"medium_risk": "%[1]s %[2]s मध्ये %[3]s साठी शिफारस केली जाते. पावसाळवर लक्ष ठेवा आणि योग्य सिंचन सुनिश्चित करा.",
		"high_risk":   "%[1]s %[2]s मध्ये %[3]s मध्ये उगवले जाऊ शकते, परंतु सावधानीपूर्वक व्यवस्थापन आवश्यक आहे.",
	},
}

// AdvisoryComposer renders localized advisory messages
type AdvisoryComposer struct {
	templates map[models.Language]map[string]string
}

// NewAdvisoryComposer creates a composer with the built-in templates
func NewAdvisoryComposer() *AdvisoryComposer {
	return &AdvisoryComposer{templates: advisoryTemplates}
}

// Compose picks the template for (lang, risk bucket), falling back to the
// English template for the same bucket.
func (c *AdvisoryComposer) Compose(crop, district, month string, level models.RiskLevel, lang models.Language) string {
	bucket := level.Bucket()
	template, ok := c.templates[lang][bucket]
	if !ok {
		template, ok = c.templates[models.LanguageEnglish][bucket]
	}
	if !ok {
		template = c.templates[models.LanguageEnglish][models.RiskMedium.Bucket()]
	}
	return fmt.Sprintf(template, crop, district, month)
}

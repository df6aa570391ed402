// ABOUTME: Maps client records to and from stored document fields
// ABOUTME: Normalizes native timestamps, legacy strings and absent values on read

package clients

import (
	"time"

	"github.com/harperreed/agencycrm/docstore"
	"github.com/harperreed/agencycrm/models"
)

// Stored field names.
const (
	fieldName               = "name"
	fieldEmail              = "email"
	fieldPhone              = "phone"
	fieldCompany            = "company"
	fieldWebsite            = "website"
	fieldStatus             = "status"
	fieldServiceType        = "serviceType"
	fieldServiceTier        = "serviceTier"
	fieldLogo               = "logo"
	fieldBrandColor         = "brandColor"
	fieldIndustry           = "industry"
	fieldProjectDescription = "projectDescription"
	fieldProjectGoals       = "projectGoals"
	fieldTechnologies       = "technologies"
	fieldLastQACheck        = "lastQACheck"
	fieldQAStatus           = "qaStatus"
	fieldQAScore            = "qaScore"
	fieldPerformanceScore   = "performanceScore"
	fieldAIAnalysis         = "aiAnalysis"
	fieldMonthlyRetainer    = "monthlyRetainer"
	fieldPaymentStatus      = "paymentStatus"
	fieldContractStartDate  = "contractStartDate"
	fieldContractEndDate    = "contractEndDate"
	fieldHosting            = "hosting"
	fieldSSLStatus          = "sslStatus"
	fieldBackupFrequency    = "backupFrequency"
	fieldCreatedAt          = "createdAt"
	fieldUpdatedAt          = "updatedAt"
	fieldLastContact        = "lastContact"
	fieldLastAnalyzed       = "lastAnalyzed"
)

// unknownValue buckets records missing a categorical field in stats.
const unknownValue = "unknown"

func formFields(f models.ClientFormData) docstore.Fields {
	fields := docstore.Fields{
		fieldName:               f.Name,
		fieldEmail:              f.Email,
		fieldPhone:              f.Phone,
		fieldCompany:            f.Company,
		fieldWebsite:            f.Website,
		fieldStatus:             f.Status,
		fieldServiceType:        f.ServiceType,
		fieldServiceTier:        f.ServiceTier,
		fieldLogo:               f.Logo,
		fieldBrandColor:         f.BrandColor,
		fieldIndustry:           f.Industry,
		fieldProjectDescription: f.ProjectDescription,
		fieldProjectGoals:       stringList(f.ProjectGoals),
		fieldTechnologies:       stringList(f.Technologies),
		fieldMonthlyRetainer:    f.MonthlyRetainer,
		fieldPaymentStatus:      f.PaymentStatus,
		fieldHosting:            f.Hosting,
		fieldSSLStatus:          f.SSLStatus,
		fieldBackupFrequency:    f.BackupFrequency,
	}
	// Unparseable or empty dates stay absent and read back as now.
	if t, err := models.ParseDate(f.ContractStartDate); err == nil {
		fields[fieldContractStartDate] = t
	}
	if t, err := models.ParseDate(f.ContractEndDate); err == nil {
		fields[fieldContractEndDate] = t
	}
	return fields
}

func updateFields(u models.ClientUpdate) docstore.Fields {
	fields := docstore.Fields{}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}

	setString(fieldName, u.Name)
	setString(fieldEmail, u.Email)
	setString(fieldPhone, u.Phone)
	setString(fieldCompany, u.Company)
	setString(fieldWebsite, u.Website)
	setString(fieldStatus, u.Status)
	setString(fieldServiceType, u.ServiceType)
	setString(fieldServiceTier, u.ServiceTier)
	setString(fieldLogo, u.Logo)
	setString(fieldBrandColor, u.BrandColor)
	setString(fieldIndustry, u.Industry)
	setString(fieldProjectDescription, u.ProjectDescription)
	setString(fieldQAStatus, u.QAStatus)
	setString(fieldPaymentStatus, u.PaymentStatus)
	setString(fieldHosting, u.Hosting)
	setString(fieldSSLStatus, u.SSLStatus)
	setString(fieldBackupFrequency, u.BackupFrequency)

	if u.ProjectGoals != nil {
		fields[fieldProjectGoals] = stringList(*u.ProjectGoals)
	}
	if u.Technologies != nil {
		fields[fieldTechnologies] = stringList(*u.Technologies)
	}
	if u.QAScore != nil {
		fields[fieldQAScore] = *u.QAScore
	}
	if u.PerformanceScore != nil {
		fields[fieldPerformanceScore] = *u.PerformanceScore
	}
	if u.MonthlyRetainer != nil {
		fields[fieldMonthlyRetainer] = *u.MonthlyRetainer
	}
	if u.LastQACheck != nil {
		fields[fieldLastQACheck] = *u.LastQACheck
	}
	if u.LastContact != nil {
		fields[fieldLastContact] = *u.LastContact
	}
	if u.ContractStartDate != nil {
		if t, err := models.ParseDate(*u.ContractStartDate); err == nil {
			fields[fieldContractStartDate] = t
		}
	}
	if u.ContractEndDate != nil {
		if t, err := models.ParseDate(*u.ContractEndDate); err == nil {
			fields[fieldContractEndDate] = t
		}
	}
	return fields
}

// analysisFields stores an analysis with lastAnalyzed set to a time or
// docstore.ServerTimestamp.
func analysisFields(a models.AIAnalysis, lastAnalyzed interface{}) map[string]interface{} {
	return map[string]interface{}{
		"sentiment":       a.Sentiment,
		"priority":        a.Priority,
		"recommendations": stringList(a.Recommendations),
		"riskAssessment":  a.RiskAssessment,
		"predictedGrowth": a.PredictedGrowth,
		fieldLastAnalyzed: lastAnalyzed,
	}
}

func stringList(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

// clientFromSnapshot builds a record; every timestamp that is absent or
// unreadable becomes now.
func clientFromSnapshot(snap *docstore.Snapshot, now time.Time) *models.Client {
	f := snap.Fields
	c := &models.Client{
		ID:                 snap.ID,
		Name:               str(f, fieldName),
		Email:              str(f, fieldEmail),
		Phone:              str(f, fieldPhone),
		Company:            str(f, fieldCompany),
		Website:            str(f, fieldWebsite),
		Status:             str(f, fieldStatus),
		ServiceType:        str(f, fieldServiceType),
		ServiceTier:        str(f, fieldServiceTier),
		Logo:               str(f, fieldLogo),
		BrandColor:         str(f, fieldBrandColor),
		Industry:           str(f, fieldIndustry),
		ProjectDescription: str(f, fieldProjectDescription),
		ProjectGoals:       strs(f, fieldProjectGoals),
		Technologies:       strs(f, fieldTechnologies),
		LastQACheck:        toTime(f[fieldLastQACheck], now),
		QAStatus:           str(f, fieldQAStatus),
		QAScore:            int(num(f, fieldQAScore)),
		PerformanceScore:   int(num(f, fieldPerformanceScore)),
		MonthlyRetainer:    num(f, fieldMonthlyRetainer),
		PaymentStatus:      str(f, fieldPaymentStatus),
		ContractStartDate:  toTime(f[fieldContractStartDate], now),
		ContractEndDate:    toTime(f[fieldContractEndDate], now),
		Hosting:            str(f, fieldHosting),
		SSLStatus:          str(f, fieldSSLStatus),
		BackupFrequency:    str(f, fieldBackupFrequency),
		CreatedAt:          toTime(f[fieldCreatedAt], now),
		UpdatedAt:          toTime(f[fieldUpdatedAt], now),
		LastContact:        toTime(f[fieldLastContact], now),
	}

	if raw, ok := f[fieldAIAnalysis].(map[string]interface{}); ok {
		a := docstore.Fields(raw)
		c.AIAnalysis = &models.AIAnalysis{
			Sentiment:       str(a, "sentiment"),
			Priority:        str(a, "priority"),
			Recommendations: strs(a, "recommendations"),
			RiskAssessment:  str(a, "riskAssessment"),
			PredictedGrowth: num(a, "predictedGrowth"),
			LastAnalyzed:    toTime(a[fieldLastAnalyzed], now),
		}
	}
	return c
}

// toTime converts a stored timestamp. Records written by older clients may
// hold RFC3339 strings.
func toTime(v interface{}, now time.Time) time.Time {
	switch t := v.(type) {
	case docstore.Timestamp:
		return t.Time()
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return now
}

func str(f docstore.Fields, key string) string {
	s, _ := f[key].(string)
	return s
}

func num(f docstore.Fields, key string) float64 {
	switch n := f[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func strs(f docstore.Fields, key string) []string {
	raw, ok := f[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

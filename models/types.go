// ABOUTME: Data models for agency client records
// ABOUTME: Defines Client, form/update payloads, filters, AI analysis, stats and insights
package models

import (
	"time"
)

type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Website string `json:"website,omitempty"`

	Status      string `json:"status"`
	ServiceType string `json:"serviceType"`
	ServiceTier string `json:"serviceTier,omitempty"`

	Logo       string `json:"logo,omitempty"`
	BrandColor string `json:"brandColor,omitempty"`
	Industry   string `json:"industry,omitempty"`

	ProjectDescription string   `json:"projectDescription,omitempty"`
	ProjectGoals       []string `json:"projectGoals,omitempty"`
	Technologies       []string `json:"technologies,omitempty"`

	LastQACheck      time.Time `json:"lastQACheck"`
	QAStatus         string    `json:"qaStatus"`
	QAScore          int       `json:"qaScore"`
	PerformanceScore int       `json:"performanceScore"`

	AIAnalysis *AIAnalysis `json:"aiAnalysis,omitempty"`

	MonthlyRetainer   float64   `json:"monthlyRetainer"`
	PaymentStatus     string    `json:"paymentStatus,omitempty"`
	ContractStartDate time.Time `json:"contractStartDate"`
	ContractEndDate   time.Time `json:"contractEndDate"`

	Hosting         string `json:"hosting,omitempty"`
	SSLStatus       string `json:"sslStatus,omitempty"`
	BackupFrequency string `json:"backupFrequency,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastContact time.Time `json:"lastContact"`
}

// AIAnalysis is the structured analysis attached to a client record.
type AIAnalysis struct {
	Sentiment       string    `json:"sentiment"`
	Priority        string    `json:"priority"`
	Recommendations []string  `json:"recommendations"`
	RiskAssessment  string    `json:"riskAssessment"`
	PredictedGrowth float64   `json:"predictedGrowth"`
	LastAnalyzed    time.Time `json:"lastAnalyzed"`
}

// ClientFormData is the payload submitted when creating a client.
// Contract dates are RFC3339 or YYYY-MM-DD strings, as a form sends them.
type ClientFormData struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Website string `json:"website,omitempty"`

	Status      string `json:"status" validate:"omitempty,clientstatus"`
	ServiceType string `json:"serviceType" validate:"omitempty,servicetype"`
	ServiceTier string `json:"serviceTier,omitempty" validate:"omitempty,servicetier"`

	Logo       string `json:"logo,omitempty"`
	BrandColor string `json:"brandColor,omitempty"`
	Industry   string `json:"industry,omitempty"`

	ProjectDescription string   `json:"projectDescription,omitempty"`
	ProjectGoals       []string `json:"projectGoals,omitempty"`
	Technologies       []string `json:"technologies,omitempty"`

	MonthlyRetainer   float64 `json:"monthlyRetainer" validate:"gte=0"`
	PaymentStatus     string  `json:"paymentStatus,omitempty" validate:"omitempty,paymentstatus"`
	ContractStartDate string  `json:"contractStartDate,omitempty" validate:"omitempty,formdate"`
	ContractEndDate   string  `json:"contractEndDate,omitempty" validate:"omitempty,formdate"`

	Hosting         string `json:"hosting,omitempty" validate:"omitempty,hosting"`
	SSLStatus       string `json:"sslStatus,omitempty" validate:"omitempty,sslstatus"`
	BackupFrequency string `json:"backupFrequency,omitempty" validate:"omitempty,backupfrequency"`
}

// ClientUpdate is a partial update. Only non-nil fields are written.
type ClientUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Company *string `json:"company,omitempty"`
	Website *string `json:"website,omitempty"`

	Status      *string `json:"status,omitempty" validate:"omitempty,clientstatus"`
	ServiceType *string `json:"serviceType,omitempty" validate:"omitempty,servicetype"`
	ServiceTier *string `json:"serviceTier,omitempty" validate:"omitempty,servicetier"`

	Logo       *string `json:"logo,omitempty"`
	BrandColor *string `json:"brandColor,omitempty"`
	Industry   *string `json:"industry,omitempty"`

	ProjectDescription *string   `json:"projectDescription,omitempty"`
	ProjectGoals       *[]string `json:"projectGoals,omitempty"`
	Technologies       *[]string `json:"technologies,omitempty"`

	QAStatus         *string    `json:"qaStatus,omitempty" validate:"omitempty,qastatus"`
	QAScore          *int       `json:"qaScore,omitempty" validate:"omitempty,qascore"`
	PerformanceScore *int       `json:"performanceScore,omitempty" validate:"omitempty,performancescore"`
	LastQACheck      *time.Time `json:"lastQACheck,omitempty"`
	LastContact      *time.Time `json:"lastContact,omitempty"`

	MonthlyRetainer   *float64 `json:"monthlyRetainer,omitempty" validate:"omitempty,gte=0"`
	PaymentStatus     *string  `json:"paymentStatus,omitempty" validate:"omitempty,paymentstatus"`
	ContractStartDate *string  `json:"contractStartDate,omitempty" validate:"omitempty,formdate"`
	ContractEndDate   *string  `json:"contractEndDate,omitempty" validate:"omitempty,formdate"`

	Hosting         *string `json:"hosting,omitempty" validate:"omitempty,hosting"`
	SSLStatus       *string `json:"sslStatus,omitempty" validate:"omitempty,sslstatus"`
	BackupFrequency *string `json:"backupFrequency,omitempty" validate:"omitempty,backupfrequency"`
}

// ClientsFilter selects and pages clients. Empty values and FilterAll
// leave a predicate unapplied.
type ClientsFilter struct {
	Search        string `json:"search,omitempty"`
	Status        string `json:"status,omitempty"`
	ServiceType   string `json:"serviceType,omitempty"`
	ServiceTier   string `json:"serviceTier,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Page          int    `json:"page,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

type ClientStats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	ByService     map[string]int `json:"byService"`
	Revenue       float64        `json:"revenue"`
	ActiveClients int            `json:"activeClients"`
}

// Insights is the aggregate narrative produced for the whole client base.
type Insights struct {
	Summary       string    `json:"summary"`
	Highlights    []string  `json:"highlights,omitempty"`
	Risks         []string  `json:"risks,omitempty"`
	Opportunities []string  `json:"opportunities,omitempty"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// FilterAll is the filter value meaning "do not filter on this field".
const FilterAll = "all"

// Client status constants.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
	StatusOnHold   = "on-hold"
)

// Service type constants.
const (
	ServiceWordPress = "wordpress"
	ServiceShopify   = "shopify"
	ServiceMERN      = "mern"
	ServiceJava      = "java"
	ServicePython    = "python"
	ServiceReact     = "react"
	ServiceNextJS    = "nextjs"
	ServiceNodeJS    = "nodejs"
	ServiceMobile    = "mobile"
	ServiceEcommerce = "ecommerce"
)

// Service tier constants.
const (
	TierBasic      = "basic"
	TierStandard   = "standard"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

// QA status constants.
const (
	QAPassed     = "passed"
	QAFailed     = "failed"
	QAPending    = "pending"
	QAInProgress = "in-progress"
)

// Payment status constants.
const (
	PaymentPaid      = "paid"
	PaymentPending   = "pending"
	PaymentOverdue   = "overdue"
	PaymentCancelled = "cancelled"
)

// Hosting constants.
const (
	HostingShared    = "shared"
	HostingVPS       = "vps"
	HostingDedicated = "dedicated"
	HostingCloud     = "cloud"
)

// SSL status constants.
const (
	SSLActive  = "active"
	SSLExpired = "expired"
	SSLPending = "pending"
)

// Backup frequency constants.
const (
	BackupDaily   = "daily"
	BackupWeekly  = "weekly"
	BackupMonthly = "monthly"
)

// Sentiment constants.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Priority constants.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Form defaults applied on create when the field is left empty.
const (
	DefaultStatus      = StatusActive
	DefaultServiceType = ServiceReact
	DefaultBrandColor  = "#3B82F6"
)

var (
	Statuses          = []string{StatusActive, StatusInactive, StatusPending, StatusOnHold}
	ServiceTypes      = []string{ServiceWordPress, ServiceShopify, ServiceMERN, ServiceJava, ServicePython, ServiceReact, ServiceNextJS, ServiceNodeJS, ServiceMobile, ServiceEcommerce}
	ServiceTiers      = []string{TierBasic, TierStandard, TierPremium, TierEnterprise}
	QAStatuses        = []string{QAPassed, QAFailed, QAPending, QAInProgress}
	PaymentStatuses   = []string{PaymentPaid, PaymentPending, PaymentOverdue, PaymentCancelled}
	HostingTypes      = []string{HostingShared, HostingVPS, HostingDedicated, HostingCloud}
	SSLStatuses       = []string{SSLActive, SSLExpired, SSLPending}
	BackupFrequencies = []string{BackupDaily, BackupWeekly, BackupMonthly}
	Sentiments        = []string{SentimentPositive, SentimentNeutral, SentimentNegative}
	Priorities        = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
)

// WithDefaults returns a copy of the form with the create defaults filled in.
func (f ClientFormData) WithDefaults() ClientFormData {
	if f.Status == "" {
		f.Status = DefaultStatus
	}
	if f.ServiceType == "" {
		f.ServiceType = DefaultServiceType
	}
	if f.BrandColor == "" {
		f.BrandColor = DefaultBrandColor
	}
	return f
}

// Client builds the record a create would store from this form, with the
// QA bookkeeping defaults and every timestamp set to now.
func (f ClientFormData) Client(now time.Time) Client {
	c := Client{
		Name:               f.Name,
		Email:              f.Email,
		Phone:              f.Phone,
		Company:            f.Company,
		Website:            f.Website,
		Status:             f.Status,
		ServiceType:        f.ServiceType,
		ServiceTier:        f.ServiceTier,
		Logo:               f.Logo,
		BrandColor:         f.BrandColor,
		Industry:           f.Industry,
		ProjectDescription: f.ProjectDescription,
		ProjectGoals:       f.ProjectGoals,
		Technologies:       f.Technologies,
		LastQACheck:        now,
		QAStatus:           QAPending,
		MonthlyRetainer:    f.MonthlyRetainer,
		PaymentStatus:      f.PaymentStatus,
		Hosting:            f.Hosting,
		SSLStatus:          f.SSLStatus,
		BackupFrequency:    f.BackupFrequency,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastContact:        now,
		ContractStartDate:  now,
		ContractEndDate:    now,
	}
	if t, err := ParseDate(f.ContractStartDate); err == nil {
		c.ContractStartDate = t
	}
	if t, err := ParseDate(f.ContractEndDate); err == nil {
		c.ContractEndDate = t
	}
	return c
}

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Contains reports whether value is one of the allowed values.
func Contains(allowed []string, value string) bool {
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}

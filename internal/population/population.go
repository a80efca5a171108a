// Package population builds the static synthetic userbase: users, their
// devices and accounts, KYC submissions, device-IP history, and the derived
// per-user behavioral profile.
//
// Generation is staged — Users → Devices → KYC → Accounts → Device-IP
// history → Profiles — and each stage reads only earlier stages' output.
// The whole population is a pure function of the seed and the date range.
package population

import "time"

// Bounding box for Germany. Home coordinates and the uniform location
// fallback are drawn inside it.
const (
	LatMin  = 47.27
	LatMax  = 55.06
	LongMin = 5.87
	LongMax = 15.04
)

// HomeCurrency is the currency of the modeled market.
const HomeCurrency = "EUR"

// User is one account holder. Immutable after creation.
type User struct {
	ID           int64     `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone_number"`
	Gender       string    `json:"gender"`
	DOB          time.Time `json:"dob"`
	Occupation   string    `json:"occupation"`
	Address      string    `json:"address"`
	Zipcode      int       `json:"zipcode"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Country      string    `json:"country"`
	SignupAt     time.Time `json:"signup_ts"`
	SignupDevice string    `json:"signup_device"`
}

// Device belongs to exactly one user.
type Device struct {
	ID        int64     `json:"device_id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"device_type"` // mobile, tablet
	OS        string    `json:"os"`          // iOS, Android
	FirstSeen time.Time `json:"first_seen_ts"`
	LastSeen  time.Time `json:"last_seen_ts"`
	IP        string    `json:"ip_address"`
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountDormant  AccountStatus = "dormant"
)

// Account belongs to exactly one user. Balance is illustrative only; it is
// never debited or credited by generated transactions.
type Account struct {
	ID       int64         `json:"account_id"`
	UserID   int64         `json:"user_id"`
	Balance  float64       `json:"balance"`
	Status   AccountStatus `json:"status"`
	OpenedAt time.Time     `json:"open_ts"`
}

// KYCStatus is the review outcome of a KYC submission.
type KYCStatus string

const (
	KYCApproved KYCStatus = "approved"
	KYCPending  KYCStatus = "pending"
	KYCRejected KYCStatus = "rejected"
)

// CreditBucket is the coarse credit score band carried by a submission.
type CreditBucket string

const (
	CreditPoor      CreditBucket = "poor"
	CreditFair      CreditBucket = "fair"
	CreditGood      CreditBucket = "good"
	CreditExcellent CreditBucket = "excellent"
	CreditUnknown   CreditBucket = "unknown"
)

// KYCSubmission is the single KYC record per user. RiskScore sits in
// [0, 100]; poor/unknown credit buckets push it up.
type KYCSubmission struct {
	ID           int64        `json:"kyc_id"`
	UserID       int64        `json:"user_id"`
	RiskScore    float64      `json:"risk_score"`
	CreditBucket CreditBucket `json:"credit_score_bucket"`
	Status       KYCStatus    `json:"status"`
	SelfiePassed bool         `json:"selfie_check"`
	SubmittedAt  time.Time    `json:"submitted_at"`
}

// DeviceIPEntry is one append-only (device, ip, seen) observation, built
// once and queried by the IP-reuse rule.
type DeviceIPEntry struct {
	DeviceID int64     `json:"device_id"`
	IP       string    `json:"ip_address"`
	SeenAt   time.Time `json:"seen_ts"`
}

// Profile carries the derived behavioral parameters for one user. It is a
// deterministic function of the user's KYC attributes plus the profile-stage
// draws, computed once and reused for every transaction by that user.
type Profile struct {
	UserID             int64
	BaselineAmountMu   float64 // log-normal location, risk multiplier folded in
	BaselineFreqPerDay float64
	HomeLat            float64
	HomeLong           float64
	IsFraudster        bool
	RiskMultiplier     float64
}

// Population is the fully built reference dataset. Slices are ordered by id
// and read-only after Build; the maps are derived lookup indexes.
type Population struct {
	Users     []User
	Devices   []Device
	Accounts  []Account
	KYC       []KYCSubmission
	IPHistory []DeviceIPEntry

	BlacklistedIPs []string

	accountsByUser map[int64][]int // indexes into Accounts
	devicesByUser  map[int64][]int // indexes into Devices
	profileByUser  map[int64]*Profile
	kycByUser      map[int64]*KYCSubmission
	blacklistSet   map[string]struct{}
}

// AccountsOf returns a copy of the user's accounts in id order.
func (p *Population) AccountsOf(userID int64) []Account {
	idxs := p.accountsByUser[userID]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Account, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, p.Accounts[i])
	}
	return out
}

// DevicesOf returns a copy of the user's devices in id order.
func (p *Population) DevicesOf(userID int64) []Device {
	idxs := p.devicesByUser[userID]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Device, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, p.Devices[i])
	}
	return out
}

// ProfileOf returns the user's derived profile, or nil for an unknown user.
func (p *Population) ProfileOf(userID int64) *Profile {
	return p.profileByUser[userID]
}

// KYCOf returns the user's KYC submission, or nil for an unknown user.
func (p *Population) KYCOf(userID int64) *KYCSubmission {
	return p.kycByUser[userID]
}

// IsBlacklisted reports whether ip is on the startup blacklist.
func (p *Population) IsBlacklisted(ip string) bool {
	_, ok := p.blacklistSet[ip]
	return ok
}

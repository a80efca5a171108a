package population

import (
	"fmt"
	"math"
	"time"

	"github.com/boxylabs/fraudgen/internal/sample"
)

// Blacklist size drawn at startup, before any user exists. The draw order
// is part of the determinism contract.
const blacklistSize = 50

// Builder constructs a Population stage by stage from one seeded source.
type Builder struct {
	userCount int
	start     time.Time
	end       time.Time
	src       *sample.Source
}

// NewBuilder validates the date range and returns a builder. A start after
// end or a negative user count is a configuration error.
func NewBuilder(userCount int, start, end time.Time, src *sample.Source) (*Builder, error) {
	if userCount < 0 {
		return nil, fmt.Errorf("population: user count must be >= 0, got %d", userCount)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("population: date range is empty: start %s after end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return &Builder{userCount: userCount, start: start, end: end, src: src}, nil
}

// Build runs all stages in order and returns the finished population.
// Generation always succeeds given a validated builder.
func (b *Builder) Build() *Population {
	p := &Population{
		accountsByUser: make(map[int64][]int),
		devicesByUser:  make(map[int64][]int),
		profileByUser:  make(map[int64]*Profile),
		kycByUser:      make(map[int64]*KYCSubmission),
		blacklistSet:   make(map[string]struct{}, blacklistSize),
	}

	b.buildBlacklist(p)
	b.buildUsers(p)
	b.buildDevices(p)
	b.buildKYC(p)
	b.buildAccounts(p)
	b.buildIPHistory(p)
	b.buildProfiles(p)

	return p
}

func (b *Builder) buildBlacklist(p *Population) {
	p.BlacklistedIPs = make([]string, 0, blacklistSize)
	for i := 0; i < blacklistSize; i++ {
		ip := b.src.IPv4()
		p.BlacklistedIPs = append(p.BlacklistedIPs, ip)
		p.blacklistSet[ip] = struct{}{}
	}
}

func (b *Builder) buildUsers(p *Population) {
	p.Users = make([]User, 0, b.userCount)
	for i := 1; i <= b.userCount; i++ {
		signup := b.src.TimeBetween(b.start, b.end)
		// Shift weekend signups back into the week.
		for wd := signup.Weekday(); wd == time.Saturday || wd == time.Sunday; wd = signup.Weekday() {
			signup = signup.AddDate(0, 0, -b.src.IntBetween(1, 2))
		}

		first := b.src.FirstName()
		last := b.src.LastName()
		gender := "F"
		if b.src.Bool(0.5) {
			gender = "M"
		}

		p.Users = append(p.Users, User{
			ID:           int64(i),
			FirstName:    first,
			LastName:     last,
			Email:        b.src.Email(first, last),
			Phone:        b.src.Phone(),
			Gender:       gender,
			DOB:          b.src.DateOfBirth(b.start, 18, 80),
			Occupation:   b.src.Job(),
			Address:      b.src.StreetAddress(),
			Zipcode:      b.src.IntBetween(10000, 99999),
			City:         b.src.City(),
			State:        b.src.State(),
			Country:      "DE",
			SignupAt:     signup,
			SignupDevice: b.pickOS(),
		})
	}
}

var deviceCountWeights = []float64{0.70, 0.25, 0.05} // 1, 2, 3 devices

func (b *Builder) buildDevices(p *Population) {
	var deviceID int64 = 1
	for _, u := range p.Users {
		n := 1 + b.src.WeightedIndex(deviceCountWeights)
		for j := 0; j < n; j++ {
			devType := "mobile"
			if b.src.Bool(0.2) {
				devType = "tablet"
			}
			d := Device{
				ID:        deviceID,
				UserID:    u.ID,
				Type:      devType,
				OS:        b.pickOS(),
				FirstSeen: u.SignupAt,
				LastSeen:  u.SignupAt.AddDate(0, 0, b.src.IntBetween(1, 300)),
				IP:        b.src.IPv4(),
			}
			p.devicesByUser[u.ID] = append(p.devicesByUser[u.ID], len(p.Devices))
			p.Devices = append(p.Devices, d)
			deviceID++
		}
	}
}

var creditBuckets = []CreditBucket{CreditPoor, CreditFair, CreditGood, CreditExcellent, CreditUnknown}
var creditBucketWeights = []float64{0.15, 0.25, 0.35, 0.15, 0.10}

var kycStatuses = []KYCStatus{KYCApproved, KYCPending, KYCRejected}
var kycStatusWeights = []float64{0.80, 0.15, 0.05}

func (b *Builder) buildKYC(p *Population) {
	p.KYC = make([]KYCSubmission, 0, len(p.Users))
	for _, u := range p.Users {
		risk := b.src.Range(0, 100)
		bucket := creditBuckets[b.src.WeightedIndex(creditBucketWeights)]
		if bucket == CreditPoor || bucket == CreditUnknown {
			risk += b.src.Range(20, 40)
		}
		risk = math.Min(risk, 100)

		p.KYC = append(p.KYC, KYCSubmission{
			ID:           u.ID,
			UserID:       u.ID,
			RiskScore:    risk,
			CreditBucket: bucket,
			Status:       kycStatuses[b.src.WeightedIndex(kycStatusWeights)],
			SelfiePassed: b.src.Bool(0.95),
			SubmittedAt:  u.SignupAt,
		})
	}
	// KYC was sized up front, so the backing array is final.
	for i := range p.KYC {
		p.kycByUser[p.KYC[i].UserID] = &p.KYC[i]
	}
}

var accountCountWeights = []float64{0.70, 0.30} // 1, 2 accounts

var accountStatuses = []AccountStatus{AccountActive, AccountInactive, AccountDormant}
var accountStatusWeights = []float64{0.85, 0.10, 0.05}

func (b *Builder) buildAccounts(p *Population) {
	var accountID int64 = 1
	for _, u := range p.Users {
		n := 1 + b.src.WeightedIndex(accountCountWeights)
		for j := 0; j < n; j++ {
			a := Account{
				ID:       accountID,
				UserID:   u.ID,
				Balance:  math.Round(b.src.Range(0, 50000)*100) / 100,
				Status:   accountStatuses[b.src.WeightedIndex(accountStatusWeights)],
				OpenedAt: b.src.TimeBetween(u.SignupAt, b.end),
			}
			p.accountsByUser[u.ID] = append(p.accountsByUser[u.ID], len(p.Accounts))
			p.Accounts = append(p.Accounts, a)
			accountID++
		}
	}
}

func (b *Builder) buildIPHistory(p *Population) {
	for _, d := range p.Devices {
		n := b.src.IntBetween(1, 5)
		for j := 0; j < n; j++ {
			p.IPHistory = append(p.IPHistory, DeviceIPEntry{
				DeviceID: d.ID,
				IP:       b.src.IPv4(),
				SeenAt:   b.src.TimeBetween(d.FirstSeen, d.LastSeen),
			})
		}
	}
}

// Share of users that behave fraudulently, drawn once per user.
const fraudsterShare = 0.03

func (b *Builder) buildProfiles(p *Population) {
	for _, u := range p.Users {
		k := p.kycByUser[u.ID]

		multiplier := 1 + k.RiskScore/100
		if k.Status == KYCRejected || !k.SelfiePassed {
			multiplier += 0.25
		}

		// mu ~ 3.2..4.7 before risk: e^3.2 ≈ 25 EUR to e^4.7 ≈ 110 EUR
		// median spend. High-risk users move more money.
		mu := 3.2 + 1.5*b.src.Float64() + math.Log(multiplier)*0.5

		p.profileByUser[u.ID] = &Profile{
			UserID:             u.ID,
			BaselineAmountMu:   mu,
			BaselineFreqPerDay: 0.5 + 3*b.src.Float64(),
			HomeLat:            b.src.Range(LatMin, LatMax),
			HomeLong:           b.src.Range(LongMin, LongMax),
			IsFraudster:        b.src.Bool(fraudsterShare),
			RiskMultiplier:     multiplier,
		}
	}
}

func (b *Builder) pickOS() string {
	if b.src.Bool(0.5) {
		return "iOS"
	}
	return "Android"
}

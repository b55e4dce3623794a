package application

import "time"

// Phase is the lifecycle state of a session.
type Phase string

// Session phases. A session moves forward through them and never back.
const (
	PhaseNominationsOpen  Phase = "Nominations Open"
	PhaseVotingOpen       Phase = "Voting Open"
	PhaseResultsPublished Phase = "Results Published"
	PhaseClosed           Phase = "Closed"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseNominationsOpen, PhaseVotingOpen, PhaseResultsPublished, PhaseClosed:
		return true
	}
	return false
}

// Active reports whether a session in phase p holds the active election slot.
func (p Phase) Active() bool {
	return p == PhaseNominationsOpen || p == PhaseVotingOpen
}

// Session is one election cycle.
type Session struct {
	ID              string
	Name            string
	NominationStart *time.Time
	NominationEnd   *time.Time
	VotingStart     *time.Time
	VotingEnd       *time.Time
	Phase           Phase
	NominationOpen  bool
	VotingOpen      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActiveElection names the single session accepting nominations or votes.
type ActiveElection struct {
	SessionID string
	Phase     Phase
	UpdatedAt time.Time
}

// SessionTransition is a guarded phase change handed to the repository.
type SessionTransition struct {
	SessionID      string
	From           Phase
	To             Phase
	NominationOpen bool
	VotingOpen     bool
	Activate       bool
	// SnapshotID, when set, freezes the session results under this id.
	SnapshotID string
	At         time.Time
}

// Position is an office being elected.
type Position struct {
	ID        string
	Name      string
	Order     int
	CreatedAt time.Time
}

// Gender values accepted on intake forms.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Nomination is a candidacy submission. Approved nominations are candidates.
type Nomination struct {
	ID                string
	SessionID         string
	FullName          string
	Email             string
	PhoneNumber       string
	Gender            string
	Designation       string
	WorkplaceAddress  string
	LastTrainingDate  *time.Time
	Interested        bool
	DesiredPositionID *string
	Approved          bool
	PhotoPath         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Voter is a person who cast at least one vote in a session.
type Voter struct {
	ID               string
	SessionID        string
	FullName         string
	Email            string
	Gender           string
	Designation      string
	WorkplaceAddress string
	LastTrainingDate *time.Time
	VotedAt          *time.Time
	CreatedAt        time.Time
}

// Vote is one voter's choice for one position.
type Vote struct {
	ID          string
	SessionID   string
	VoterID     string
	PositionID  string
	CandidateID string
	CreatedAt   time.Time
}

// VoteRecord is the voter upsert and vote insert committed together.
type VoteRecord struct {
	Voter Voter
	Vote  Vote
}

// CandidateCount is the number of votes a candidate received.
type CandidateCount struct {
	CandidateID string
	Count       int
}

// ResultRow is one approved candidate's vote total within a position.
type ResultRow struct {
	PositionID    string
	PositionName  string
	PositionOrder int
	CandidateID   string
	CandidateName string
	Votes         int
}

// ResultSnapshot is the result set frozen at publication.
type ResultSnapshot struct {
	ID         string
	SessionID  string
	ComputedAt time.Time
	Rows       []ResultRow
}

// CandidateResult is a candidate's standing in a position.
type CandidateResult struct {
	CandidateID string
	FullName    string
	Votes       int
}

// PositionResult lists a position's candidates by descending votes.
type PositionResult struct {
	PositionID string
	Name       string
	Order      int
	Candidates []CandidateResult
}

// SessionResults is the results view of a session.
type SessionResults struct {
	Session    Session
	Positions  []PositionResult
	ComputedAt time.Time
	// Frozen is true when the results come from the publication snapshot.
	Frozen bool
}

// FormLabel is the display label of an intake form field.
type FormLabel struct {
	FormType  string
	FieldName string
	LabelText string
	UpdatedAt time.Time
}

// SessionInput carries the administrator supplied session fields.
type SessionInput struct {
	Name            string
	NominationStart *time.Time
	NominationEnd   *time.Time
	VotingStart     *time.Time
	VotingEnd       *time.Time
}

// PositionInput carries the administrator supplied position fields.
type PositionInput struct {
	Name  string
	Order int
}

// NominationInput is the public nomination form.
type NominationInput struct {
	FullName          string
	Email             string
	PhoneNumber       string
	Gender            string
	Designation       string
	WorkplaceAddress  string
	LastTrainingDate  *time.Time
	Interested        *bool
	DesiredPositionID *string
	PhotoPath         *string
}

// VoterInput is the identity section of the ballot form.
type VoterInput struct {
	FullName         string
	Email            string
	Gender           string
	Designation      string
	WorkplaceAddress string
	LastTrainingDate *time.Time
}

package persistence

import "time"

// Session phase values as stored in the sessions table.
const (
	PhaseNominationsOpen  = "Nominations Open"
	PhaseVotingOpen       = "Voting Open"
	PhaseResultsPublished = "Results Published"
	PhaseClosed           = "Closed"
)

// Session is one election cycle.
type Session struct {
	ID              string
	Name            string
	NominationStart *time.Time
	NominationEnd   *time.Time
	VotingStart     *time.Time
	VotingEnd       *time.Time
	Phase           string
	NominationOpen  bool
	VotingOpen      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActiveElection names the single session currently accepting nominations or votes.
type ActiveElection struct {
	SessionID string
	Phase     string
	UpdatedAt time.Time
}

// SessionTransition describes a guarded phase change applied in one transaction.
type SessionTransition struct {
	SessionID      string
	From           string
	To             string
	NominationOpen bool
	VotingOpen     bool
	// Activate claims the active election slot; otherwise the slot is released.
	Activate bool
	// Snapshot, when set, freezes the session's results inside the same transaction.
	Snapshot *ResultSnapshot
	At       time.Time
}

// Position is an office being elected.
type Position struct {
	ID        string
	Name      string
	Order     int
	CreatedAt time.Time
}

// Nomination is a candidacy submission for a session.
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

// Voter is a person who has cast at least one vote in a session.
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
	ID         string
	SessionID  string
	VoterID    string
	PositionID string
	NomineeID  string
	CreatedAt  time.Time
}

// VoteRecord bundles the voter upsert and the vote insert committed together.
type VoteRecord struct {
	Voter Voter
	Vote  Vote
}

// VoteCount is the number of votes one nominee received.
type VoteCount struct {
	NomineeID string
	Count     int
}

// ResultRow is one approved candidate's standing within a position.
type ResultRow struct {
	PositionID    string `json:"position_id"`
	PositionName  string `json:"position_name"`
	PositionOrder int    `json:"position_order"`
	NomineeID     string `json:"nominee_id"`
	NomineeName   string `json:"nominee_name"`
	Votes         int    `json:"votes"`
}

// ResultSnapshot is the frozen result set written when results are published.
type ResultSnapshot struct {
	ID         string
	SessionID  string
	ComputedAt time.Time
	Rows       []ResultRow
}

// FormLabel overrides the display label of an intake form field.
type FormLabel struct {
	FormType  string
	FieldName string
	LabelText string
	UpdatedAt time.Time
}

package qualtrics

// Survey is a survey as listed by the platform.
type Survey struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsActive   bool   `json:"isActive"`
	OwnerID    string `json:"ownerId,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// Question kinds and selectors the tool creates. The platform's vocabulary:
// multiple choice with a single-answer vertical selector for scored and
// selector questions, text entry for free text.
const (
	TypeMultipleChoice = "MC"
	TypeTextEntry      = "TE"

	SelectorSingleAnswerVertical = "SAVR"
	SelectorTextLine             = "SL"
	SubSelectorText              = "TX"
)

// Choice is one selectable answer of a question. DisplayLogic, when present,
// gates the choice's visibility (used for quota-limited choices).
type Choice struct {
	Display      string         `json:"Display"`
	DisplayLogic map[string]any `json:"DisplayLogic,omitempty"`
}

// QuestionConfiguration mirrors the platform's question configuration block.
type QuestionConfiguration struct {
	QuestionDescriptionOption string `json:"QuestionDescriptionOption"`
}

// ValidationSettings controls response enforcement for a question.
type ValidationSettings struct {
	ForceResponse     string `json:"ForceResponse"`
	ForceResponseType string `json:"ForceResponseType"`
	Type              string `json:"Type"`
}

// Validation wraps ValidationSettings the way the question payload nests it.
type Validation struct {
	Settings ValidationSettings `json:"Settings"`
}

// Question is a survey question definition, used both for creation and for
// the re-issued updates that attach display logic. QuestionID is assigned by
// the platform and unset on create.
type Question struct {
	QuestionText  string                `json:"QuestionText"`
	DataExportTag string                `json:"DataExportTag"`
	QuestionType  string                `json:"QuestionType"`
	Selector      string                `json:"Selector"`
	SubSelector   string                `json:"SubSelector,omitempty"`
	Configuration QuestionConfiguration `json:"Configuration"`
	Choices       map[string]Choice     `json:"Choices,omitempty"`
	ChoiceOrder   []string              `json:"ChoiceOrder,omitempty"`
	Validation    *Validation           `json:"Validation,omitempty"`
	QuestionID    string                `json:"QuestionID,omitempty"`
}

// ForceResponse marks q as requiring an answer.
func (q *Question) ForceResponse() {
	q.Validation = &Validation{Settings: ValidationSettings{
		ForceResponse:     "ON",
		ForceResponseType: "ON",
		Type:              "None",
	}}
}

// Quota is a quota definition. The platform assigns QuotaID on create; Logic
// is a boolean expression tree (see ChoiceSelectedLogic).
type Quota struct {
	Name            string         `json:"Name"`
	Occurrences     int            `json:"Occurrences"`
	Logic           map[string]any `json:"Logic"`
	QuotaAction     string         `json:"QuotaAction"`
	OverQuotaAction string         `json:"OverQuotaAction,omitempty"`
	QuotaRealm      string         `json:"QuotaRealm"`
	QuotaGroupID    string         `json:"QuotaGroupID,omitempty"`
	QuotaID         string         `json:"QuotaID,omitempty"`
	Count           int            `json:"Count,omitempty"`
}

// QuotaGroup is a named group of quotas.
type QuotaGroup struct {
	ID     string   `json:"QuotaGroupID"`
	Name   string   `json:"Name"`
	Quotas []string `json:"Quotas,omitempty"`
}

// Library is a user or group library that can own mailing lists.
type Library struct {
	ID   string `json:"libraryId"`
	Name string `json:"libraryName"`
}

// MailingList is a contact list usable as a distribution audience.
type MailingList struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LibraryID string `json:"libraryId,omitempty"`
}

// Contact is one member of a mailing list.
type Contact struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// DistributionLink is one recipient's personal survey link.
type DistributionLink struct {
	ContactID string `json:"contactId"`
	Email     string `json:"email"`
	Link      string `json:"link"`
	Status    string `json:"status,omitempty"`
}

// result is the platform's standard response envelope.
type result[T any] struct {
	Result T `json:"result"`
}

// page is one page of an elements collection.
type page[T any] struct {
	Elements []T    `json:"elements"`
	NextPage string `json:"nextPage"`
}

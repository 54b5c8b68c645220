package registry

import "time"

// Member is a registered individual in the organization's registry.
type Member struct {
	ID             string    `db:"id" json:"id"`
	RegistrationID string    `db:"registration_id" json:"registration_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	CPF            string    `db:"cpf" json:"cpf"`
	BirthDate      time.Time `db:"birth_date" json:"birth_date"`
	Pronouns       string    `db:"pronouns" json:"pronouns"`
	Expelled       bool      `db:"expelled" json:"expelled"`
	Deceased       bool      `db:"deceased" json:"deceased"`
	Transferred    bool      `db:"transferred" json:"transferred"`
	JoinedAt       time.Time `db:"joined_at" json:"joined_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LegalRepresentative acts on behalf of a member (e.g. for minors). It is
// cascade-deleted with its member.
type LegalRepresentative struct {
	ID        string    `db:"id" json:"id"`
	MemberID  string    `db:"member_id" json:"member_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	CPF       string    `db:"cpf" json:"cpf"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Address struct {
	ID         string    `db:"id" json:"id"`
	MemberID   string    `db:"member_id" json:"member_id"`
	Street     string    `db:"street" json:"street"`
	Number     string    `db:"number" json:"number"`
	Complement string    `db:"complement" json:"complement"`
	District   string    `db:"district" json:"district"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

const (
	ChannelKindPhone = "phone"
	ChannelKindEmail = "email"
)

// ContactChannel belongs to exactly one member or one representative.
// Phone channels store the canonical (normalized) value and are the lookup
// key for inbound messages.
type ContactChannel struct {
	ID               string    `db:"id" json:"id"`
	MemberID         string    `db:"member_id" json:"member_id,omitempty"`
	RepresentativeID string    `db:"representative_id" json:"representative_id,omitempty"`
	Kind             string    `db:"kind" json:"kind"`
	Value            string    `db:"value" json:"value"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type MembershipPayment struct {
	ID             string    `db:"id" json:"id"`
	MemberID       string    `db:"member_id" json:"member_id"`
	PaymentDate    time.Time `db:"payment_date" json:"payment_date"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateAddressRequest struct {
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required,len=2"`
	PostalCode string `json:"postal_code"`
}

type UpdateAddressRequest = CreateAddressRequest

type CreatePhoneRequest struct {
	Value string `json:"value" validate:"required"`
}

type CreateRepresentativeRequest struct {
	FullName string `json:"full_name" validate:"required"`
	CPF      string `json:"cpf" validate:"required"`
	Phone    string `json:"phone"`
}

type UpdateRepresentativeRequest struct {
	FullName string `json:"full_name" validate:"required"`
	CPF      string `json:"cpf" validate:"required"`
}

type UpdatePronounsRequest struct {
	Pronouns string `json:"pronouns" validate:"required,max=40"`
}

package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"fantasy12/models"
	"fantasy12/services"
)

type Inventory struct {
	Doubles      int `json:"doubles"`
	SuperDoubles int `json:"superDoubles"`
}

// UserResponse is the wire form of a user: inventory nested, credential
// omitted.
type UserResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	TaxID     *string         `json:"cpf,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Role      models.Role     `json:"role"`
	Balance   decimal.Decimal `json:"balance"`
	Inventory Inventory       `json:"inventory"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		TaxID:     u.TaxID,
		Phone:     u.Phone,
		Role:      u.Role,
		Balance:   u.Balance,
		Inventory: Inventory{Doubles: u.Doubles, SuperDoubles: u.SuperDoubles},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return out
}

type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

func toSessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{User: toUserResponse(s.User), Token: s.Token}
}

// AdminUserUpdate is the body of PUT /admin/users/:id.
type AdminUserUpdate struct {
	Role      *models.Role     `json:"role"`
	Balance   *decimal.Decimal `json:"balance"`
	Inventory *struct {
		Doubles      *int `json:"doubles"`
		SuperDoubles *int `json:"superDoubles"`
	} `json:"inventory"`
}

// applyUserUpdate flattens the nested inventory into the service input.
func applyUserUpdate(body AdminUserUpdate) services.AdminUpdateInput {
	in := services.AdminUpdateInput{Role: body.Role, Balance: body.Balance}
	if body.Inventory != nil {
		in.Doubles = body.Inventory.Doubles
		in.SuperDoubles = body.Inventory.SuperDoubles
	}
	return in
}

// PoolResponse lists participants by user id, in join order.
type PoolResponse struct {
	models.Pool
	Participants []string `json:"participants"`
}

func toPoolResponse(p *models.Pool) PoolResponse {
	return PoolResponse{Pool: *p, Participants: p.ParticipantIDs()}
}

func toPoolResponses(pools []models.Pool) []PoolResponse {
	out := make([]PoolResponse, len(pools))
	for i := range pools {
		out[i] = toPoolResponse(&pools[i])
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/associahq/associa/internal/auth"
	"github.com/associahq/associa/internal/identifier"
	"github.com/associahq/associa/internal/registry"
)

// MembersHandler serves the member-facing CRUD endpoints. Every route is
// bearer-token authorized and the token subject must own the member
// resource it touches.
type MembersHandler struct {
	store  *registry.Store
	logger *slog.Logger
}

func NewMembersHandler(log *slog.Logger, store *registry.Store) *MembersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MembersHandler{
		store:  store,
		logger: log.With(slog.String("handler", "members")),
	}
}

func (h *MembersHandler) Register(e *echo.Echo) {
	group := e.Group("/members/:id")
	group.GET("/addresses", h.ListAddresses)
	group.POST("/addresses", h.CreateAddress)
	group.PUT("/addresses/:address_id", h.UpdateAddress)
	group.DELETE("/addresses/:address_id", h.DeleteAddress)

	group.GET("/phones", h.ListPhones)
	group.POST("/phones", h.CreatePhone)
	group.DELETE("/phones/:phone_id", h.DeletePhone)

	group.GET("/representatives", h.ListRepresentatives)
	group.POST("/representatives", h.CreateRepresentative)
	group.PUT("/representatives/:rep_id", h.UpdateRepresentative)
	group.DELETE("/representatives/:rep_id", h.DeleteRepresentative)

	group.PUT("/pronouns", h.UpdatePronouns)
	group.GET("/missing-fields", h.MissingFields)
}

// requireMember authorizes the request and confirms the member row exists.
func (h *MembersHandler) requireMember(c echo.Context) (registry.Member, error) {
	memberID := c.Param("id")
	if err := auth.RequireOwner(c, memberID); err != nil {
		return registry.Member{}, err
	}
	member, err := h.store.GetMember(c.Request().Context(), memberID)
	if err != nil {
		return registry.Member{}, mapDomainError(err)
	}
	return member, nil
}

// ListAddresses godoc
// @Summary List member addresses
// @Tags members
// @Success 200 {array} registry.Address
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /members/{id}/addresses [get]
func (h *MembersHandler) ListAddresses(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	items, err := h.store.ListAddresses(c.Request().Context(), member.ID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MembersHandler) CreateAddress(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	var req registry.CreateAddressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.store.CreateAddress(c.Request().Context(), member.ID, req); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Endereço cadastrado com sucesso."})
}

func (h *MembersHandler) UpdateAddress(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	address, err := h.store.GetAddress(c.Request().Context(), c.Param("address_id"))
	if err != nil {
		return mapDomainError(err)
	}
	if address.MemberID != member.ID {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	var req registry.UpdateAddressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.store.UpdateAddress(c.Request().Context(), address.ID, req); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Endereço atualizado com sucesso."})
}

func (h *MembersHandler) DeleteAddress(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	address, err := h.store.GetAddress(c.Request().Context(), c.Param("address_id"))
	if err != nil {
		return mapDomainError(err)
	}
	if address.MemberID != member.ID {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if err := h.store.DeleteAddress(c.Request().Context(), address.ID); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Endereço removido com sucesso."})
}

func (h *MembersHandler) ListPhones(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	items, err := h.store.ListPhoneChannels(c.Request().Context(), member.ID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MembersHandler) CreatePhone(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	var req registry.CreatePhoneRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	canonical, err := identifier.NormalizePhone(req.Value)
	if err != nil {
		return mapDomainError(err)
	}
	owner := registry.ChannelOwner{MemberID: member.ID}
	if _, err := h.store.CreatePhoneChannel(c.Request().Context(), owner, canonical); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Telefone cadastrado com sucesso."})
}

func (h *MembersHandler) DeletePhone(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	channels, err := h.store.ListPhoneChannels(c.Request().Context(), member.ID)
	if err != nil {
		return mapDomainError(err)
	}
	phoneID := c.Param("phone_id")
	for _, channel := range channels {
		if channel.ID == phoneID {
			if err := h.store.DeleteChannel(c.Request().Context(), phoneID); err != nil {
				return mapDomainError(err)
			}
			return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Telefone removido com sucesso."})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "record not found")
}

func (h *MembersHandler) ListRepresentatives(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	items, err := h.store.ListRepresentatives(c.Request().Context(), member.ID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MembersHandler) CreateRepresentative(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	var req registry.CreateRepresentativeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cpf, err := identifier.NormalizeCPF(req.CPF)
	if err != nil {
		return mapDomainError(err)
	}
	rep, err := h.store.CreateRepresentative(c.Request().Context(), member.ID, req.FullName, cpf)
	if err != nil {
		return mapDomainError(err)
	}
	if req.Phone != "" {
		canonical, err := identifier.NormalizePhone(req.Phone)
		if err != nil {
			return mapDomainError(err)
		}
		owner := registry.ChannelOwner{RepresentativeID: rep.ID}
		if _, err := h.store.CreatePhoneChannel(c.Request().Context(), owner, canonical); err != nil {
			return mapDomainError(err)
		}
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Representante legal cadastrado com sucesso."})
}

func (h *MembersHandler) UpdateRepresentative(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	rep, err := h.store.GetRepresentative(c.Request().Context(), c.Param("rep_id"))
	if err != nil {
		return mapDomainError(err)
	}
	if rep.MemberID != member.ID {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	var req registry.UpdateRepresentativeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cpf, err := identifier.NormalizeCPF(req.CPF)
	if err != nil {
		return mapDomainError(err)
	}
	if _, err := h.store.UpdateRepresentative(c.Request().Context(), rep.ID, req.FullName, cpf); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Representante legal atualizado com sucesso."})
}

func (h *MembersHandler) DeleteRepresentative(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	rep, err := h.store.GetRepresentative(c.Request().Context(), c.Param("rep_id"))
	if err != nil {
		return mapDomainError(err)
	}
	if rep.MemberID != member.ID {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if err := h.store.DeleteRepresentative(c.Request().Context(), rep.ID); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Representante legal removido com sucesso."})
}

func (h *MembersHandler) UpdatePronouns(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	var req registry.UpdatePronounsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.store.UpdatePronouns(c.Request().Context(), member.ID, req.Pronouns); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: "Pronomes atualizados com sucesso."})
}

type missingFieldsResponse struct {
	MemberID      string   `json:"member_id"`
	MissingFields []string `json:"missing_fields"`
}

// MissingFields reports which profile fields the member has not filled in
// yet, so the assistant can prompt for them.
func (h *MembersHandler) MissingFields(c echo.Context) error {
	member, err := h.requireMember(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	missing := make([]string, 0, 3)
	if member.Pronouns == "" {
		missing = append(missing, "pronouns")
	}
	addresses, err := h.store.ListAddresses(ctx, member.ID)
	if err != nil {
		return mapDomainError(err)
	}
	if len(addresses) == 0 {
		missing = append(missing, "address")
	}
	phones, err := h.store.ListPhoneChannels(ctx, member.ID)
	if err != nil {
		return mapDomainError(err)
	}
	if len(phones) == 0 {
		missing = append(missing, "phone")
	}

	return c.JSON(http.StatusOK, missingFieldsResponse{
		MemberID:      member.ID,
		MissingFields: missing,
	})
}

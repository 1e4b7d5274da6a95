package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type clientResponse struct {
	ClientID  uint32 `json:"client_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

type authResponse struct {
	Token   string          `json:"token,omitempty"`
	Client  *clientResponse `json:"client,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// --- Rooms ---

type roomResponse struct {
	RoomID    uint32 `json:"room_id"`
	MaxGuests uint8  `json:"max_guests"`
}

type roomListResponse struct {
	Rooms []roomResponse `json:"rooms"`
	Count int            `json:"count"`
}

type availableRoomsQuery struct {
	Start  string `query:"start"  validate:"required,isodate"`
	End    string `query:"end"    validate:"required,isodate"`
	Guests uint8  `query:"guests" validate:"omitempty,gte=1"`
}

type roomAvailabilityQuery struct {
	Start string `query:"start" validate:"required,isodate"`
	End   string `query:"end"   validate:"required,isodate"`
}

type roomAvailabilityResponse struct {
	RoomID    uint32 `json:"room_id"`
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
	Available bool   `json:"available"`
}

// --- Reservations ---

type reserveRequest struct {
	RoomID     uint32 `json:"room_id"`
	DateStart  string `json:"date_start"  validate:"required,isodate"`
	DateEnd    string `json:"date_end"    validate:"required,isodate"`
	GuestCount uint8  `json:"guest_count" validate:"required,gte=1"`
}

type modifyRequest struct {
	DateStart  string `json:"date_start"  validate:"required,isodate"`
	DateEnd    string `json:"date_end"    validate:"required,isodate"`
	GuestCount uint8  `json:"guest_count" validate:"required,gte=1"`
}

type reservationLinks struct {
	Self string `json:"self"`
	Room string `json:"room"`
}

type reservationResponse struct {
	ReservationID uint32           `json:"reservation_id"`
	ClientID      uint32           `json:"client_id"`
	RoomID        uint32           `json:"room_id"`
	DateStart     string           `json:"date_start"`
	DateEnd       string           `json:"date_end"`
	GuestCount    uint8            `json:"guest_count"`
	Nights        int              `json:"nights"`
	Links         reservationLinks `json:"_links"`
}

type reservationListResponse struct {
	Reservations []reservationResponse `json:"reservations"`
	Count        int                   `json:"count"`
}

// bookingResponse is returned by reserve, modify and cancel. Warning is set
// when the change is live but could not be written to storage.
type bookingResponse struct {
	ReservationID uint32    `json:"reservation_id"`
	PreviousID    uint32    `json:"previous_id,omitempty"`
	Status        string    `json:"status"`
	Replayed      bool      `json:"replayed,omitempty"`
	Warning       string    `json:"warning,omitempty"`
	Links         *selfLink `json:"_links,omitempty"`
}

type selfLink struct {
	Self string `json:"self"`
}

type snapshotResponse struct {
	Message string `json:"message"`
}

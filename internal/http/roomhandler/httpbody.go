package roomhandler

type CreateRoomBody struct {
	MaxUsers    int    `json:"max_users"    binding:"omitempty,gte=1,lte=50" example:"5"`
	CreatorName string `json:"creator_name" binding:"omitempty,max=255"      example:"Anonymous"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

package domain

// ExternalIdentity es la identidad verificada que entrega un proveedor en un
// intento de autenticacion. No se persiste.
type ExternalIdentity struct {
	Provider   Provider `json:"provider"`
	ExternalID string   `json:"external_id"`
	Email      *string  `json:"email,omitempty"`
	Name       string   `json:"name,omitempty"`
	PictureURL string   `json:"picture_url,omitempty"`
}

// Recommend es una categoria de recomendacion del catalogo.
type Recommend struct {
	ID   int64  `json:"id"`
	Name string `json:"recommend_name"`
}

package domain

import "time"

// User es la proyeccion publica de un usuario. Nunca lleva el hash de la
// credencial, por lo que puede serializarse tal cual hacia el cliente.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserCredentials es la forma interna usada solo para verificar contraseñas.
// No tiene tags JSON a proposito: no debe cruzar la capa HTTP.
type UserCredentials struct {
	User
	PasswordHash string `json:"-"`
}

// Public descarta el hash y devuelve la proyeccion externa.
func (c UserCredentials) Public() User {
	return c.User
}

package database

import (
	"time"
)

func (db *PgChitChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email, profile_pic, created_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.ProfilePic,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgChitChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, profile_pic = $3, password_hash = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, email, profile_pic, created_at, updated_at",
		params.UserId,
		params.Username,
		params.ProfilePic,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.ProfilePic,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChitChatRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, profile_pic, password_hash, created_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.ProfilePic,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgChitChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, profile_pic, password_hash, created_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.ProfilePic,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgChitChatRepository) ListAccounts(excludeId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, email, profile_pic, created_at FROM accounts "+
			"WHERE id != $1 ORDER BY id",
		excludeId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.Id,
			&u.Username,
			&u.EmailAddress,
			&u.ProfilePic,
			&u.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgChitChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (external_id, sender_id, recipient_id, text, image, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, external_id, sender_id, recipient_id, text, image, created_at",
		params.ExternalId,
		params.SenderId,
		params.RecipientId,
		params.Text,
		params.Image,
		time.Now().UTC(),
	)

	var m Message
	err := res.Scan(
		&m.Id,
		&m.ExternalId,
		&m.SenderId,
		&m.RecipientId,
		&m.Text,
		&m.Image,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgChitChatRepository) GetMessageByExternalId(externalId string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, sender_id, recipient_id, text, image, created_at FROM messages "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.ExternalId,
		&m.SenderId,
		&m.RecipientId,
		&m.Text,
		&m.Image,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgChitChatRepository) ListMessagesBetween(accountId, partnerId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, sender_id, recipient_id, text, image, created_at FROM messages "+
			"WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1) "+
			"ORDER BY id",
		accountId,
		partnerId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.ExternalId,
			&m.SenderId,
			&m.RecipientId,
			&m.Text,
			&m.Image,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (db *PgChitChatRepository) ListChatPartners(accountId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT a.id, a.username, a.email, a.profile_pic, a.created_at FROM accounts a "+
			"JOIN messages m ON (m.sender_id = a.id AND m.recipient_id = $1) "+
			"OR (m.recipient_id = a.id AND m.sender_id = $1) "+
			"ORDER BY a.id",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.Id,
			&u.Username,
			&u.EmailAddress,
			&u.ProfilePic,
			&u.CreatedAt,
		); err != nil {
			return nil, err
		}
		partners = append(partners, u)
	}

	return partners, rows.Err()
}

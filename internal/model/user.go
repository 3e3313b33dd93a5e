// Package model はドメインモデルを定義する。
package model

// Role はユーザーの権限レベルを表す。
type Role string

// RoleAdmin は管理パネルへのアクセスが許可されるロール。
// これ以外の値はすべて非管理者として扱う。
const RoleAdmin Role = "admin"

// Claim はセッショントークンに埋め込まれる本人情報を表す。
// 発行後は変更されない。内容を変えるにはトークンを再発行する。
type Claim struct {
	UserID string
	Email  string
	Role   Role
}

// Identity は外部認証サービスで検証された本人情報を表す。
type Identity struct {
	ID    string
	Email string
}

// Profile はユーザーのプロフィールレコードを表す。
// ロールの解決にのみ使用する。
type Profile struct {
	ID   string
	Role Role
}

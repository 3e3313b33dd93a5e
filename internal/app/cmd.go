package app

import (
	"os"
	"strings"
)

// Command は lienzo バイナリのサブコマンド。
type Command string

const (
	CommandServe       Command = "serve"       // 管理APIを起動する
	CommandMigrate     Command = "migrate"     // profiles・productsのスキーマを適用する
	CommandHealthcheck Command = "healthcheck" // 起動中のAPIの/healthを確認する（distrolessのHEALTHCHECK用）
)

var commands = []Command{CommandServe, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 大文字小文字と前後の空白は無視する。引数がない場合はserveとし、
// 解釈できない場合はserveとともにknown=falseを返す。
func ParseCommand(args []string) (cmd Command, known bool) {
	if len(args) == 0 {
		return CommandServe, true
	}

	name := strings.ToLower(strings.TrimSpace(args[0]))
	for _, c := range commands {
		if string(c) == name {
			return c, true
		}
	}
	return CommandServe, false
}

// healthcheckPort はhealthcheckが問い合わせるポートを返す。
// 設定全体を読み込まずに、serveと同じSERVER_PORT・PORT・4000の順で決める。
func healthcheckPort() string {
	for _, key := range []string{"SERVER_PORT", "PORT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "4000"
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, feed, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotLoggedIn       = "NOT_LOGGED_IN"
	ErrCodeLoginFailed       = "LOGIN_FAILED"
	ErrCodeInvalidEmail      = "INVALID_EMAIL"
	ErrCodeInvalidPhone      = "INVALID_PHONE"
	ErrCodeInvalidZipcode    = "INVALID_ZIPCODE"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeEmptyUsername     = "EMPTY_USERNAME"
	ErrCodePasswordMismatch  = "PASSWORD_MISMATCH"
	ErrCodeDuplicateUsername = "DUPLICATE_USERNAME"
	ErrCodeCannotFollowSelf  = "CANNOT_FOLLOW_SELF"
	ErrCodeAlreadyFollowing  = "ALREADY_FOLLOWING"
	ErrCodeNotFollowing      = "NOT_FOLLOWING"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodePostNotFound      = "POST_NOT_FOUND"
	ErrCodeArticleNotFound   = "ARTICLE_NOT_FOUND"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeSSRFBlocked       = "SSRF_BLOCKED"
)

// NewNotLoggedInError はログイン中のユーザーが存在しない場合のエラーを生成する。
func NewNotLoggedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLoggedIn,
		Message:  "ログイン中のユーザーがいません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewLoginFailedError はユーザー名またはパスワードの不一致エラーを生成する。
// 攻撃者にどちらが誤っているかを教えないよう、メッセージは両者を区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "local@domain.tld の形式で入力してください。",
	}
}

// NewInvalidPhoneError は電話番号形式エラーを生成する。
func NewInvalidPhoneError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPhone,
		Message:  "電話番号の形式が正しくありません。",
		Category: "validation",
		Action:   "123-456-7890 の形式で入力してください。",
	}
}

// NewInvalidZipcodeError は郵便番号形式エラーを生成する。
func NewInvalidZipcodeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidZipcode,
		Message:  "郵便番号の形式が正しくありません。",
		Category: "validation",
		Action:   "5桁の数字で入力してください。",
	}
}

// NewMissingFieldError は必須フィールド未入力エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須フィールドが未入力です: %s", field),
		Category: "validation",
		Action:   "すべての必須フィールドを入力してください。",
	}
}

// NewEmptyUsernameError は空のユーザー名での検索エラーを生成する。
func NewEmptyUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyUsername,
		Message:  "ユーザー名が入力されていません。",
		Category: "validation",
		Action:   "フォローしたいユーザー名を入力してください。",
	}
}

// NewPasswordMismatchError は登録時のパスワード確認不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "パスワードと確認用パスワードが一致しません。",
		Category: "validation",
		Action:   "同じパスワードを2回入力してください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "conflict",
		Action:   "別のユーザー名を選んでください。",
	}
}

// NewCannotFollowSelfError は自己フォローエラーを生成する。
func NewCannotFollowSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeCannotFollowSelf,
		Message:  "自分自身をフォローすることはできません。",
		Category: "conflict",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewAlreadyFollowingError はフォロー済みユーザーへの再フォローエラーを生成する。
func NewAlreadyFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFollowing,
		Message:  "このユーザーは既にフォローしています。",
		Category: "conflict",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewNotFollowingError は未フォローユーザーの解除エラーを生成する。
func NewNotFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFollowing,
		Message:  "このユーザーはフォローしていません。",
		Category: "conflict",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewUserNotFoundError は指定ユーザー名のユーザーが見つからない場合のエラーを生成する。
// メッセージには検索を試みたユーザー名を含める。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", username),
		Category: "feed",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID int64) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %d", postID),
		Category: "feed",
		Action:   "投稿IDを確認してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID int64) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %d", articleID),
		Category: "feed",
		Action:   "記事IDを確認してください。",
	}
}

// NewFetchFailedError はリモート取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("リモートデータの取得に失敗しました: %s", reason),
		Category: "feed",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを指定してください。",
	}
}

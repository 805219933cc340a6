package session

// Namespace prefixes every key the store owns.
const Namespace = "mediadesk."

// Persisted keys. Raw tokens and the login time are stored as plain strings, everything else as JSON.
const (
	KeyAccessToken  = Namespace + "accessToken"
	KeyRefreshToken = Namespace + "refreshToken"
	KeyPermissions  = Namespace + "permissions"
	KeySuperAdmin   = Namespace + "isSuperAdmin"
	KeySettings     = Namespace + "userSettings"
	KeyFullSession  = Namespace + "fullLoginDetails"
	KeyUserProfile  = Namespace + "userDetails"
	KeyLoggedIn     = Namespace + "isLoggedIn"
	KeyDeviceID     = Namespace + "deviceId"
	KeyCountry      = Namespace + "country"
	KeyLanguage     = Namespace + "language"
	KeyLoginTime    = Namespace + "loginTime"
)

var allKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyPermissions,
	KeySuperAdmin,
	KeySettings,
	KeyFullSession,
	KeyUserProfile,
	KeyLoggedIn,
	KeyDeviceID,
	KeyCountry,
	KeyLanguage,
	KeyLoginTime,
}

// Keys returns every key cleared by [Store.ClearAll].
func Keys() []string {
	out := make([]string, len(allKeys))
	copy(out, allKeys)
	return out
}

package domain

// SteamIDOffset is the base added to a canonical account id to form the
// platform-wide 64-bit Steam identifier.
const SteamIDOffset int64 = 76561197960265728

// AccountIDFromSteam64 converts an expanded Steam64 id to a canonical account id.
func AccountIDFromSteam64(steam64 int64) int64 {
	return steam64 - SteamIDOffset
}

// Steam64FromAccountID is the inverse of AccountIDFromSteam64.
func Steam64FromAccountID(accountID int64) int64 {
	return accountID + SteamIDOffset
}

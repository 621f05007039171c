/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package session

// Key layout shared by every instance. The pub/sub topic of a session
// is its key, so these builders name both. The owned keyspace carries
// a user prefix and is disjoint from the public one; lookups never
// fall back from owned to public.

// PublicKey returns the storage key (and topic) of a public session.
func PublicKey(sessionID string) string {
	return sessionID
}

// OwnedKey returns the storage key (and topic) of an owned session.
func OwnedKey(userID, sessionID string) string {
	return ownedKeyPrefix(userID) + sessionID
}

// UserRecordKey returns the storage key of a user's credential record.
func UserRecordKey(userID string) string {
	return "user:" + userID + ":data"
}

// ownedKeyPrefix is the common prefix of all sessions owned by userID.
func ownedKeyPrefix(userID string) string {
	return "user:" + userID + ":session:"
}

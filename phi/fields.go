package phi

import "slices"

// EncryptedSuffix marks a field whose value is ciphertext.
const EncryptedSuffix = "_encrypted"

// SensitiveFields lists the record fields eligible for encryption.
var SensitiveFields = []string{"phone", "message", "notes", "bio", "program", "goals"}

// IsSensitive reports whether field is covered by the encryption policy.
func IsSensitive(field string) bool {
	return slices.Contains(SensitiveFields, field)
}

// EncryptFields returns a copy of record with every non-empty sensitive
// string field encrypted and its marker set. Already marked fields are left
// alone. On error nothing is returned.
func EncryptFields(c *Cipher, record map[string]any, key Secret) (map[string]any, error) {
	out := make(map[string]any, len(record)+len(SensitiveFields))
	for k, v := range record {
		out[k] = v
	}

	for _, field := range SensitiveFields {
		if marked(out, field) {
			continue
		}
		v, ok := out[field].(string)
		if !ok || v == "" {
			continue
		}
		sealed, err := c.Encrypt(v, key)
		if err != nil {
			return nil, err
		}
		out[field] = sealed
		out[field+EncryptedSuffix] = true
	}
	return out, nil
}

// DecryptFields returns a copy of record with marked fields decrypted.
// Fields that fail to decrypt are removed and listed in unavailable; they
// are never replaced with an empty string.
func DecryptFields(c *Cipher, record map[string]any, key Secret) (map[string]any, []string) {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	var unavailable []string
	for _, field := range SensitiveFields {
		if !marked(out, field) {
			continue
		}
		sealed, ok := out[field].(string)
		if !ok {
			delete(out, field)
			unavailable = append(unavailable, field)
			continue
		}
		plain, err := c.Decrypt(sealed, key)
		if err != nil {
			delete(out, field)
			unavailable = append(unavailable, field)
			continue
		}
		out[field] = plain
		out[field+EncryptedSuffix] = false
	}
	return out, unavailable
}

func marked(record map[string]any, field string) bool {
	v, _ := record[field+EncryptedSuffix].(bool)
	return v
}

package corpus

// Schema is the JSON schema every corpus document must satisfy
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["keywords", "answer"],
    "additionalProperties": false,
    "properties": {
      "keywords": {
        "type": "array",
        "minItems": 1,
        "items": {"type": "string", "minLength": 1}
      },
      "answer": {"type": "string", "minLength": 1}
    }
  }
}`

package manifest

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	yaml "gopkg.in/yaml.v2"

	"github.com/ballast-os/ballast/errdefs"
)

// manifestSchema is the structural contract of the manifest document.
// Semantic rules (device layering, ordering, reuse) belong to the
// validators, not here.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rootfs"],
  "properties": {
    "location": {"type": "string"},
    "hostname": {"type": "string"},
    "timezone": {"type": "string"},
    "disks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["device", "table", "partitions"],
        "properties": {
          "device": {"type": "string", "minLength": 1},
          "table": {"enum": ["gpt", "ms-dos"]},
          "partitions": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "properties": {
                "label": {"type": "string"},
                "number": {"type": "integer", "minimum": 1},
                "size": {"type": "string"},
                "type": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "dm": {
      "type": "array",
      "items": {
        "type": "object",
        "minProperties": 1,
        "maxProperties": 1,
        "properties": {
          "luks": {
            "type": "object",
            "required": ["device", "name"],
            "properties": {
              "device": {"type": "string", "minLength": 1},
              "name": {"type": "string", "minLength": 1},
              "key": {"type": "string"}
            }
          },
          "lvm": {
            "type": "object",
            "properties": {
              "pvs": {"type": "array", "items": {"type": "string", "minLength": 1}},
              "vgs": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["name", "pvs"],
                  "properties": {
                    "name": {"type": "string", "minLength": 1},
                    "pvs": {"type": "array", "minItems": 1, "items": {"type": "string"}}
                  }
                }
              },
              "lvs": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["vg", "name"],
                  "properties": {
                    "vg": {"type": "string", "minLength": 1},
                    "name": {"type": "string", "minLength": 1},
                    "size": {"type": "string"}
                  }
                }
              }
            }
          }
        }
      }
    },
    "rootfs": {"$ref": "#/definitions/fs"},
    "fs": {"type": "array", "items": {"$ref": "#/definitions/fs"}},
    "swap": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "pacstraps": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "chroot": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "postinstall": {"type": "array", "items": {"type": "string", "minLength": 1}}
  },
  "definitions": {
    "fs": {
      "type": "object",
      "required": ["device", "fstype"],
      "properties": {
        "device": {"type": "string", "minLength": 1},
        "fstype": {"type": "string", "minLength": 1},
        "fsopts": {"type": "string"},
        "mnt": {"type": "string"},
        "mntopts": {"type": "string"}
      }
    }
  }
}`

// checkSchema validates raw manifest YAML against manifestSchema.
func checkSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errdefs.BadManifest("manifest is not valid yaml: %v", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewGoLoader(jsonable(doc)),
	)
	if err != nil {
		return errdefs.InternalBug("manifest schema did not compile: %v", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errdefs.BadManifest("manifest schema violation: %s", strings.Join(msgs, "; "))
}

// jsonable rewrites yaml.v2's map[interface{}]interface{} trees into
// string-keyed map[string]interface{} form the JSON schema loader
// accepts.
func jsonable(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[fmt.Sprintf("%v", key)] = jsonable(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = jsonable(val)
		}
		return out
	default:
		return v
	}
}

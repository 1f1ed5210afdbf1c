package syllabus

import "github.com/BerylCAtieno/syllabus-analyzer/internal/llm"

const systemPrompt = `You extract structured metadata from university course syllabi.

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "year": "4-digit academic year, e.g. 2024",
  "semester": "one of Spring, Summer, Fall, Winter",
  "class_name": "course title",
  "class_number": "course code, e.g. PSY 2012",
  "instructor": "instructor name",
  "university": "institution name",
  "main_topic": "main subject of the course",
  "reading_materials": [
    {
      "title": "title of the resource",
      "media_type": "one of books, journal_articles, book_chapters, websites, videos, equipment",
      "requirement": "one of required, suggested, equipment",
      "ISBN": "ISBN if given, else Unknown",
      "url": "URL if given, else Unknown",
      "journal_names": ["journal names for articles, else empty"],
      "certainty": "0-100, how sure you are this is a reading material"
    }
  ]
}

Use "Unknown" for any value that cannot be determined and an empty array when
no reading materials are listed. Include calculators, lab kits and similar
supplies with requirement "equipment". Do not invent values.`

const userPromptPrefix = "Extract the requested fields from the following syllabus text.\n\n"

// buildRequest pairs the fixed instruction with the full text, unabridged.
func buildRequest(text string) llm.Request {
	return llm.Request{
		System: systemPrompt,
		User:   userPromptPrefix + text,
	}
}

package openai

import (
	"fmt"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"
)

// SystemInstruction primes the model before the generation prompt.
const SystemInstruction = "You are a conversational AI assistant."

const conversationPromptFormat = `
Create a natural and engaging Persian (Farsi) conversation between two individuals by incorporating the provided elements as follows:

Title: Establishes the overall theme or subject of the conversation.
Text: Provides background information or context to guide the dialogue's development.
Dialogue Style: Defines the tone, formality, and manner of speech, ensuring consistency in the interaction.
Dialogue Starter: Serves as the initial exchange to set the conversation in motion.

The conversation should flow smoothly, feel authentic and culturally appropriate, and maintain logical coherence throughout.

### **Inputs:**
- **Title:** "%[1]s"
- **Text:** "%[2]s"
- **Dialogue Style (English):** "%[3]s"
- **Dialogue Starter (Persian):** "%[4]s"

### **Instructions:**
To successfully complete this task, follow these structured steps:

1. **Extract Key Information**
   - Identify 2-3 key ideas from the **Title** and **Text** to shape the conversation.
   - Ensure that all newly generated dialogue is strictly derived from the given **Text** and does not introduce unrelated information.

2. **Define Characters**
   - Create two personas that match the selected **Dialogue Style**.

3. **Construct the Conversation**
   - Start with the given Persian dialogue starter:
     **"%[4]s"**
   - Generate at least six exchanges (each turn = one response per character).
   - Maintain a natural, logical, and engaging flow.
   - If relevant, incorporate questions, disagreements, or problem-solving.
   - Ensure all statements, opinions, and discussions originate from the **Text** provided.

4. **Ensure Persian Cultural Authenticity**
   - Use natural spoken Farsi, incorporating common Persian expressions and polite norms.

5. **Provide a Meaningful Conclusion**
   - End with either a logical resolution or a prompt for further discussion.

6. **Output Format (JSON)**
   - Provide the conversation in a valid JSON format, without any additional content.
   - The text should be entirely in Farsi (Persian).
   - Maintain logical coherence and consistency in the conversation.
   - Do not include any English commentary.

### **Expected JSON Output Format:**

` + "```json" + `
{
  "conversation": [
    {
      "speaker": "شخص اول",
      "text": "%[4]s"
    },
    {
      "speaker": "شخص دوم",
      "text": "{response_1}"
    },
    ...
  ]
}
` + "```"

// BuildPrompt renders the conversation-generation prompt for one record.
// Both providers share this template so candidates stay comparable.
func BuildPrompt(req models.GenerationRequest) string {
	return fmt.Sprintf(conversationPromptFormat, req.Title, req.Context, req.Style, req.Starter)
}
